// Package provider wraps an injected EIP-1193 wallet provider behind a typed
// gateway. The provider itself is supplied by the caller; the gateway never
// constructs or discovers one.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Provider error codes (EIP-1193).
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnsupportedMethod = 4200
	CodeDisconnected      = 4900
	CodeChainDisconnected = 4901
)

// Provider event names.
const (
	EventAccountsChanged = "accountsChanged"
	EventChainChanged    = "chainChanged"
)

// Provider is the request/event surface of an injected wallet.
type Provider interface {
	// Request performs one JSON-RPC style request. A JSON null result may be
	// returned either as nil or as the literal "null".
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)
	// On registers handler for event and returns a function that removes it.
	On(event string, handler func(payload json.RawMessage)) (unsubscribe func())
}

// Error is an error reported by a provider.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// UserRejected returns the error a provider reports when the user declines a prompt.
func UserRejected(msg string) *Error {
	if msg == "" {
		msg = "User rejected the request."
	}
	return &Error{Code: CodeUserRejected, Message: msg}
}

// IsUserRejection reports whether err carries the user-rejected code.
func IsUserRejection(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Code == CodeUserRejected
}

// ChainID identifies an EVM network.
type ChainID uint64

// TxHandle identifies a submitted transaction.
type TxHandle = common.Hash

// TxRequest is the transaction handed to the wallet for signing.
type TxRequest struct {
	From  common.Address
	To    common.Address
	Data  []byte
	Value *big.Int // nil or zero sends no value
}

// Receipt is the subset of a mined transaction receipt the sale flow uses.
type Receipt struct {
	TxHash      common.Hash
	Status      uint64
	BlockNumber uint64
	GasUsed     uint64
}

// Succeeded reports whether the transaction executed successfully.
func (r *Receipt) Succeeded() bool { return r != nil && r.Status == 1 }
