package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/Mohsinsiddi/w3sale/internal/chain"
)

var (
	ErrProviderUnavailable = errors.New("no wallet provider available")
	ErrConnectionRejected  = errors.New("wallet connection rejected")
	ErrReadCallFailed      = errors.New("contract read failed")
	ErrSubmissionRejected  = errors.New("transaction rejected in wallet")
	ErrSubmissionError     = errors.New("transaction submission failed")
	// ErrReceiptNoStatus marks a mined receipt without an EIP-658 status
	// field (pre-Byzantium blocks, some non-standard nodes).
	ErrReceiptNoStatus = errors.New("receipt has no status")
)

// CallArgs is the wire form of an eth_call / eth_sendTransaction object.
type CallArgs struct {
	From  *common.Address `json:"from,omitempty"`
	To    common.Address  `json:"to"`
	Data  hexutil.Bytes   `json:"data,omitempty"`
	Value *hexutil.Big    `json:"value,omitempty"`
}

// Gateway exposes typed operations over a Provider.
type Gateway struct {
	p   Provider
	log *slog.Logger
}

// New returns a gateway over p. A nil p yields a gateway whose operations
// fail with ErrProviderUnavailable.
func New(p Provider) *Gateway {
	return &Gateway{p: p, log: slog.Default().With("component", "gateway")}
}

// IsAvailable reports whether a provider was injected.
func (g *Gateway) IsAvailable() bool { return g.p != nil }

func (g *Gateway) request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if g.p == nil {
		return nil, ErrProviderUnavailable
	}
	g.log.Debug("provider request", "method", method)
	raw, err := g.p.Request(ctx, method, params...)
	if err != nil {
		g.log.Debug("provider request failed", "method", method, "err", err)
		return nil, err
	}
	if isNull(raw) {
		return nil, nil
	}
	return raw, nil
}

// RequestAccounts asks the wallet to authorise this session (may prompt).
func (g *Gateway) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	raw, err := g.request(ctx, "eth_requestAccounts")
	if err != nil {
		if errors.Is(err, ErrProviderUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrConnectionRejected, err)
	}
	accounts, err := decodeAccounts(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionRejected, err)
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("%w: no accounts returned", ErrConnectionRejected)
	}
	return accounts, nil
}

// Accounts returns the already-authorised accounts without prompting.
func (g *Gateway) Accounts(ctx context.Context) ([]common.Address, error) {
	raw, err := g.request(ctx, "eth_accounts")
	if err != nil {
		return nil, err
	}
	return decodeAccounts(raw)
}

// ChainID returns the provider's current chain.
func (g *Gateway) ChainID(ctx context.Context) (ChainID, error) {
	raw, err := g.request(ctx, "eth_chainId")
	if err != nil {
		return 0, err
	}
	if raw == nil {
		return 0, errors.New("empty chain id")
	}
	n, err := chain.DecodeQuantity(raw)
	if err != nil {
		return 0, fmt.Errorf("chain id: %w", err)
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("chain id out of range: %s", n)
	}
	return ChainID(n.Uint64()), nil
}

// ReadCall performs eth_call against to at the latest block.
func (g *Gateway) ReadCall(ctx context.Context, to common.Address, payload []byte) ([]byte, error) {
	raw, err := g.request(ctx, "eth_call", CallArgs{To: to, Data: payload}, "latest")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadCallFailed, err)
	}
	var ret hexutil.Bytes
	if raw == nil {
		return nil, fmt.Errorf("%w: empty result", ErrReadCallFailed)
	}
	if err := json.Unmarshal(raw, &ret); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadCallFailed, err)
	}
	return ret, nil
}

// SendTransaction hands tx to the wallet for signing and broadcast.
func (g *Gateway) SendTransaction(ctx context.Context, tx TxRequest) (TxHandle, error) {
	from := tx.From
	args := CallArgs{From: &from, To: tx.To, Data: tx.Data}
	if tx.Value != nil && tx.Value.Sign() > 0 {
		args.Value = (*hexutil.Big)(tx.Value)
	}

	raw, err := g.request(ctx, "eth_sendTransaction", args)
	if err != nil {
		switch {
		case errors.Is(err, ErrProviderUnavailable):
			return TxHandle{}, err
		case IsUserRejection(err):
			return TxHandle{}, fmt.Errorf("%w: %w", ErrSubmissionRejected, err)
		default:
			return TxHandle{}, fmt.Errorf("%w: %w", ErrSubmissionError, err)
		}
	}

	var hash string
	if raw == nil {
		return TxHandle{}, fmt.Errorf("%w: no transaction hash", ErrSubmissionError)
	}
	if err := json.Unmarshal(raw, &hash); err != nil {
		return TxHandle{}, fmt.Errorf("%w: %w", ErrSubmissionError, err)
	}
	b, err := hexutil.Decode(hash)
	if err != nil || len(b) != common.HashLength {
		return TxHandle{}, fmt.Errorf("%w: malformed transaction hash %q", ErrSubmissionError, hash)
	}
	g.log.Info("transaction submitted", "hash", hash, "to", tx.To.Hex())
	return common.BytesToHash(b), nil
}

// TransactionReceipt returns the receipt for h, or nil while it is pending.
func (g *Gateway) TransactionReceipt(ctx context.Context, h TxHandle) (*Receipt, error) {
	raw, err := g.request(ctx, "eth_getTransactionReceipt", h.Hex())
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return decodeReceipt(raw)
}

// OnAccountsChanged subscribes fn to account switches.
func (g *Gateway) OnAccountsChanged(fn func([]common.Address)) (unsubscribe func()) {
	if g.p == nil {
		return func() {}
	}
	return g.p.On(EventAccountsChanged, func(payload json.RawMessage) {
		accounts, err := decodeAccounts(payload)
		if err != nil {
			g.log.Warn("ignoring malformed accountsChanged event", "err", err)
			return
		}
		fn(accounts)
	})
}

// OnChainChanged subscribes fn to network switches.
func (g *Gateway) OnChainChanged(fn func(ChainID)) (unsubscribe func()) {
	if g.p == nil {
		return func() {}
	}
	return g.p.On(EventChainChanged, func(payload json.RawMessage) {
		n, err := chain.DecodeQuantity(payload)
		if err != nil || !n.IsUint64() {
			g.log.Warn("ignoring malformed chainChanged event", "payload", string(payload))
			return
		}
		fn(ChainID(n.Uint64()))
	})
}

// --- decoding ---

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || strings.TrimSpace(string(raw)) == "null"
}

func decodeAccounts(raw json.RawMessage) ([]common.Address, error) {
	if isNull(raw) {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decoding accounts: %w", err)
	}
	out := make([]common.Address, 0, len(list))
	for _, a := range list {
		if !common.IsHexAddress(a) {
			return nil, fmt.Errorf("invalid account %q", a)
		}
		out = append(out, common.HexToAddress(a))
	}
	return out, nil
}

type rpcReceipt struct {
	TransactionHash string `json:"transactionHash"`
	Status          string `json:"status"`
	BlockNumber     string `json:"blockNumber"`
	GasUsed         string `json:"gasUsed"`
}

func decodeReceipt(raw json.RawMessage) (*Receipt, error) {
	var r rpcReceipt
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decoding receipt: %w", err)
	}
	rec := &Receipt{TxHash: common.HexToHash(r.TransactionHash)}
	n, ok := chain.ParseBigHex(r.Status)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrReceiptNoStatus, rec.TxHash.Hex())
	}
	rec.Status = n.Uint64()
	if n, ok := chain.ParseBigHex(r.BlockNumber); ok {
		rec.BlockNumber = n.Uint64()
	}
	if n, ok := chain.ParseBigHex(r.GasUsed); ok {
		rec.GasUsed = n.Uint64()
	}
	return rec, nil
}
