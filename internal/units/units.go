// Package units converts between on-chain integer units and human decimal strings.
//
// All arithmetic is exact (shopspring/decimal over math/big); nothing passes through
// float64, so amounts far above 2^53 integer units format without drift.
package units

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// DisplayPrecision is the maximum number of fractional digits ToDisplay keeps.
const DisplayPrecision = 6

// NativeDecimals is the number of decimals of the chain's native currency (wei per ether).
const NativeDecimals = 18

// ErrInvalidAmount is returned when a string is not a non-negative decimal number.
var ErrInvalidAmount = errors.New("invalid amount")

var amountPattern = regexp.MustCompile(`^(\d+(\.\d*)?|\.\d+)$`)

// ToDisplay divides raw by 10^decimals and formats it with at most
// DisplayPrecision fractional digits. Extra digits are truncated; trailing
// zeros and a dangling decimal point are stripped.
func ToDisplay(raw *big.Int, decimals int) string {
	if raw == nil {
		return "0"
	}
	return ToExact(raw, decimals).Truncate(DisplayPrecision).String()
}

// ToExact returns raw / 10^decimals without any loss of precision.
func ToExact(raw *big.Int, decimals int) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, int32(-decimals))
}

// ToIntegerUnits multiplies a decimal string by 10^decimals and truncates the
// result to an integer. "1.23456789" with 6 decimals yields 1234567.
func ToIntegerUnits(s string, decimals int) (*big.Int, error) {
	d, err := ParseDecimal(s)
	if err != nil {
		return nil, err
	}
	return d.Shift(int32(decimals)).Truncate(0).BigInt(), nil
}

// ParseDecimal parses a non-negative plain decimal string ("12", "0.5", ".5", "3.").
// Signs, exponents and anything else fail with ErrInvalidAmount.
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if !amountPattern.MatchString(s) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	s = strings.TrimSuffix(s, ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// Mul returns the exact product of two decimal strings, e.g. a token amount
// times a per-token price.
func Mul(a, b string) (string, error) {
	x, err := ParseDecimal(a)
	if err != nil {
		return "", err
	}
	y, err := ParseDecimal(b)
	if err != nil {
		return "", err
	}
	return x.Mul(y).String(), nil
}

// FormatNative formats a wei amount in ether.
func FormatNative(wei *big.Int) string { return ToDisplay(wei, NativeDecimals) }

// ParseNative converts an ether string to wei, truncating below one wei.
func ParseNative(s string) (*big.Int, error) { return ToIntegerUnits(s, NativeDecimals) }

// ShortenAddress shortens an address for display: 0x1234...5678.
// Empty input yields an empty string.
func ShortenAddress(addr string) string {
	if len(addr) < 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
