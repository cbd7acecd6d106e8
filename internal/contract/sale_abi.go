package contract

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// The fixed call set of the token sale. The token is a plain ERC-20; the sale
// contract sells it for the native currency at a fixed price.
//
// Function selectors:
//
//	balanceOf(address)          → 0x70a08231
//	allowance(address,address)  → 0xdd62ed3e
//	approve(address,uint256)    → 0x095ea7b3
const (
	FnBalanceOf       = "balanceOf"
	FnAllowance       = "allowance"
	FnApprove         = "approve"
	FnBuyTokens       = "buyTokens"
	FnTokenPrice      = "tokenPrice"
	FnTokensSold      = "tokensSold"
	FnTokensAvailable = "tokensAvailable"
)

// BalanceOf encodes token.balanceOf(owner).
func BalanceOf(owner common.Address) (Payload, error) {
	return EncodeCall(FnBalanceOf, []string{"address"}, []string{owner.Hex()})
}

// Allowance encodes token.allowance(owner, spender).
func Allowance(owner, spender common.Address) (Payload, error) {
	return EncodeCall(FnAllowance, []string{"address", "address"}, []string{owner.Hex(), spender.Hex()})
}

// Approve encodes token.approve(spender, amount).
func Approve(spender common.Address, amount *big.Int) (Payload, error) {
	return EncodeCall(FnApprove, []string{"address", "uint256"}, []string{spender.Hex(), amount.String()})
}

// BuyTokens encodes sale.buyTokens(amount), amount in token integer units.
func BuyTokens(amount *big.Int) (Payload, error) {
	return EncodeCall(FnBuyTokens, []string{"uint256"}, []string{amount.String()})
}

// TokenPrice encodes sale.tokenPrice(); the result is wei per whole token.
func TokenPrice() (Payload, error) { return EncodeCall(FnTokenPrice, nil, nil) }

// TokensSold encodes sale.tokensSold().
func TokensSold() (Payload, error) { return EncodeCall(FnTokensSold, nil, nil) }

// TokensAvailable encodes sale.tokensAvailable().
func TokensAvailable() (Payload, error) { return EncodeCall(FnTokensAvailable, nil, nil) }

// knownCalls maps the selectors of the sale call set to their signatures.
var knownCalls = func() map[[4]byte]string {
	m := make(map[[4]byte]string)
	for _, sig := range []string{
		Signature(FnBalanceOf, []string{"address"}),
		Signature(FnAllowance, []string{"address", "address"}),
		Signature(FnApprove, []string{"address", "uint256"}),
		Signature(FnBuyTokens, []string{"uint256"}),
		Signature(FnTokenPrice, nil),
		Signature(FnTokensSold, nil),
		Signature(FnTokensAvailable, nil),
	} {
		m[Selector(sig)] = sig
	}
	return m
}()

// Describe names the call in data for confirmation prompts: the signature
// for a known selector, the raw selector otherwise, "transfer" for no data.
func Describe(data []byte) string {
	if len(data) == 0 {
		return "transfer"
	}
	if len(data) < 4 {
		return hexutil.Encode(data)
	}
	if sig, ok := knownCalls[Payload(data).Selector()]; ok {
		return sig
	}
	return hexutil.Encode(data[:4])
}
