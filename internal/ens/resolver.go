// Package ens resolves ENS names through a plain JSON-RPC node.
package ens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Mohsinsiddi/w3sale/internal/chain"
	"github.com/Mohsinsiddi/w3sale/internal/contract"
)

// RegistryAddress is the ENS registry on Ethereum mainnet and Sepolia.
var RegistryAddress = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")

var (
	ErrNoResolver = errors.New("no ENS resolver")
	ErrNoRecord   = errors.New("no ENS record")
)

var (
	selResolver = contract.Selector(contract.Signature("resolver", []string{"bytes32"}))
	selAddr     = contract.Selector(contract.Signature("addr", []string{"bytes32"}))
	selName     = contract.Selector(contract.Signature("name", []string{"bytes32"}))
)

// IsName reports whether s looks like an ENS name rather than an address.
func IsName(s string) bool {
	return strings.Contains(s, ".") && !strings.HasPrefix(strings.ToLower(s), "0x")
}

// Resolve returns the address record of name.
func Resolve(ctx context.Context, c chain.Caller, name string) (common.Address, error) {
	node := Namehash(name)
	resolver, err := resolverOf(ctx, c, node)
	if err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", name, err)
	}
	ret, err := call(ctx, c, resolver, selAddr, node)
	if err != nil {
		return common.Address{}, fmt.Errorf("querying ENS resolver: %w", err)
	}
	addr, ok := wordAddress(ret)
	if !ok {
		return common.Address{}, fmt.Errorf("%s: %w", name, ErrNoRecord)
	}
	return addr, nil
}

// ReverseLookup returns the primary name of addr via addr.reverse.
func ReverseLookup(ctx context.Context, c chain.Caller, addr common.Address) (string, error) {
	node := Namehash(strings.ToLower(strings.TrimPrefix(addr.Hex(), "0x")) + ".addr.reverse")
	resolver, err := resolverOf(ctx, c, node)
	if err != nil {
		return "", fmt.Errorf("%s: %w", addr.Hex(), err)
	}
	ret, err := call(ctx, c, resolver, selName, node)
	if err != nil {
		return "", fmt.Errorf("querying reverse resolver: %w", err)
	}
	name := decodeString(ret)
	if name == "" {
		return "", fmt.Errorf("%s: %w", addr.Hex(), ErrNoRecord)
	}
	return name, nil
}

// Namehash implements the EIP-137 namehash.
func Namehash(name string) common.Hash {
	var node common.Hash
	if name == "" {
		return node
	}
	labels := strings.Split(strings.ToLower(name), ".")
	for i := len(labels) - 1; i >= 0; i-- {
		node = crypto.Keccak256Hash(node[:], crypto.Keccak256([]byte(labels[i])))
	}
	return node
}

func resolverOf(ctx context.Context, c chain.Caller, node common.Hash) (common.Address, error) {
	ret, err := call(ctx, c, RegistryAddress, selResolver, node)
	if err != nil {
		return common.Address{}, fmt.Errorf("querying ENS registry: %w", err)
	}
	addr, ok := wordAddress(ret)
	if !ok {
		return common.Address{}, ErrNoResolver
	}
	return addr, nil
}

func call(ctx context.Context, c chain.Caller, to common.Address, sel [4]byte, node common.Hash) ([]byte, error) {
	data := append(sel[:], node[:]...)
	raw, err := c.Call(ctx, "eth_call", map[string]string{
		"to":   to.Hex(),
		"data": hexutil.Encode(data),
	}, "latest")
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var out hexutil.Bytes
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding eth_call result: %w", err)
	}
	return out, nil
}

// wordAddress reads an address from the first word; false for short or zero results.
func wordAddress(ret []byte) (common.Address, bool) {
	if len(ret) < 32 {
		return common.Address{}, false
	}
	addr := common.BytesToAddress(ret[12:32])
	return addr, addr != (common.Address{})
}

// decodeString decodes an ABI-encoded dynamic string return value.
func decodeString(ret []byte) string {
	if len(ret) < 64 {
		return ""
	}
	offset := new(big.Int).SetBytes(ret[:32])
	if !offset.IsUint64() || offset.Uint64()+32 > uint64(len(ret)) {
		return ""
	}
	start := offset.Uint64()
	length := new(big.Int).SetBytes(ret[start : start+32])
	if !length.IsUint64() {
		return ""
	}
	end := start + 32 + length.Uint64()
	if end > uint64(len(ret)) {
		end = uint64(len(ret))
	}
	return string(ret[start+32 : end])
}
