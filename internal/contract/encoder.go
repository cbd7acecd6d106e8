package contract

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"
)

// wordSize is the width of one ABI-encoded static argument.
const wordSize = 32

// Encoding errors.
var (
	ErrUnsupportedType  = errors.New("unsupported parameter type")
	ErrEncodingOverflow = errors.New("uint256 value out of range")
	ErrInvalidAddress   = errors.New("invalid address")
	ErrInvalidInteger   = errors.New("invalid integer")
	ErrArgumentCount    = errors.New("argument count mismatch")
	ErrShortResult      = errors.New("call result shorter than one word")
)

// Payload is ABI calldata: a 4-byte selector followed by the encoded arguments.
// Treat it as immutable once built.
type Payload []byte

// Hex returns the payload as a 0x-prefixed hex string.
func (p Payload) Hex() string { return hexutil.Encode(p) }

// Selector returns the leading four bytes, the function selector.
func (p Payload) Selector() [4]byte {
	var sel [4]byte
	copy(sel[:], p)
	return sel
}

// Signature builds the canonical signature, e.g. "approve(address,uint256)".
func Signature(name string, types []string) string {
	return name + "(" + strings.Join(types, ",") + ")"
}

// Selector computes the first four bytes of the Keccak-256 hash of signature.
func Selector(signature string) [4]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	var sel [4]byte
	copy(sel[:], h.Sum(nil)[:4])
	return sel
}

// EncodeCall builds calldata for name(types...) with the given argument values.
// Only address and uint256 arguments are supported.
func EncodeCall(name string, types []string, values []string) (Payload, error) {
	if len(types) != len(values) {
		return nil, fmt.Errorf("%w: %d types, %d values", ErrArgumentCount, len(types), len(values))
	}

	sel := Selector(Signature(name, types))
	out := make(Payload, 0, 4+wordSize*len(types))
	out = append(out, sel[:]...)

	for i, typ := range types {
		word, err := encodeParam(typ, values[i])
		if err != nil {
			return nil, fmt.Errorf("encoding argument %d of %s: %w", i, name, err)
		}
		out = append(out, word...)
	}
	return out, nil
}

// encodeParam encodes a single static argument as a 32-byte word.
func encodeParam(typ, val string) ([]byte, error) {
	switch typ {
	case "address":
		if !common.IsHexAddress(val) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, val)
		}
		return common.LeftPadBytes(common.HexToAddress(val).Bytes(), wordSize), nil

	case "uint256":
		n, err := parseInteger(val)
		if err != nil {
			return nil, err
		}
		if n.Sign() < 0 {
			return nil, fmt.Errorf("%w: negative value %s", ErrEncodingOverflow, n)
		}
		u, overflow := uint256.FromBig(n)
		if overflow {
			return nil, fmt.Errorf("%w: %s exceeds 256 bits", ErrEncodingOverflow, n)
		}
		word := u.Bytes32()
		return word[:], nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, typ)
	}
}

// parseInteger accepts a decimal or 0x-prefixed hex integer.
func parseInteger(val string) (*big.Int, error) {
	s := strings.TrimSpace(val)
	base := 10
	if rest, ok := strings.CutPrefix(strings.ToLower(s), "0x"); ok {
		s, base = rest, 16
	}
	n, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidInteger, val)
	}
	return n, nil
}

// DecodeUint256 reads the first word of an eth_call result as an unsigned integer.
func DecodeUint256(ret []byte) (*big.Int, error) {
	if len(ret) < wordSize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrShortResult, len(ret))
	}
	return new(big.Int).SetBytes(ret[:wordSize]), nil
}
