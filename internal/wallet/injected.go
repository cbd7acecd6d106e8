package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Mohsinsiddi/w3sale/internal/chain"
	"github.com/Mohsinsiddi/w3sale/internal/config"
	"github.com/Mohsinsiddi/w3sale/internal/provider"
)

// Prompter asks the user to approve wallet actions.
type Prompter interface {
	ApproveConnection(origin string, account common.Address) bool
	ApproveTransaction(tx TxSummary) bool
}

// TxSummary is what the user is shown before a transaction is signed.
type TxSummary struct {
	ChainID uint64
	From    common.Address
	To      common.Address
	Value   *big.Int
	Data    []byte
	Gas     uint64
	MaxFee  *big.Int // Gas × fee cap, in wei
}

type denyAll struct{}

func (denyAll) ApproveConnection(string, common.Address) bool { return false }
func (denyAll) ApproveTransaction(TxSummary) bool            { return false }

// Injected is a terminal wallet speaking the injected-provider protocol. It
// signs with a keystore-held key and forwards everything else to a node.
type Injected struct {
	node        chain.Caller
	w           *Wallet
	signer      *Signer
	prompt      Prompter
	session     *Session
	origin      string
	gasFallback uint64
	log         *slog.Logger

	mu        sync.Mutex
	connected bool
	lastChain uint64
	subs      map[string]map[int]func(json.RawMessage)
	nextSub   int
}

var _ provider.Provider = (*Injected)(nil)

// InjectedOption configures an Injected wallet.
type InjectedOption func(*Injected)

// WithPrompter sets the approval prompter. Without one every request is refused.
func WithPrompter(p Prompter) InjectedOption {
	return func(i *Injected) { i.prompt = p }
}

// WithSession persists connection grants for origin.
func WithSession(s *Session, origin string) InjectedOption {
	return func(i *Injected) {
		i.session = s
		i.origin = origin
	}
}

// WithKeys lets a signing wallet sign with keys from ks.
func WithKeys(ks KeystoreBackend) InjectedOption {
	return func(i *Injected) {
		if ks != nil {
			i.signer = NewSigner(i.w, ks)
		}
	}
}

// WithGasFallback sets the gas limit used when estimation fails.
func WithGasFallback(gas uint64) InjectedOption {
	return func(i *Injected) {
		if gas > 0 {
			i.gasFallback = gas
		}
	}
}

// NewInjected returns a provider for wallet w backed by node.
func NewInjected(node chain.Caller, w *Wallet, opts ...InjectedOption) *Injected {
	i := &Injected{
		node:        node,
		w:           w,
		prompt:      denyAll{},
		gasFallback: config.GasLimitContractCall,
		subs:        make(map[string]map[int]func(json.RawMessage)),
		log:         slog.Default().With("component", "wallet", "wallet", w.Name),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Account returns the wallet address.
func (i *Injected) Account() common.Address { return common.HexToAddress(i.w.Address) }

// Request implements provider.Provider.
func (i *Injected) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	switch method {
	case "eth_requestAccounts":
		return i.requestAccounts()
	case "eth_accounts":
		return i.accounts()
	case "eth_sendTransaction":
		return i.sendTransaction(ctx, params)
	case "wallet_revokePermissions":
		return nil, i.Disconnect()
	case "eth_sign", "personal_sign", "eth_signTransaction", "eth_signTypedData_v4":
		return nil, &provider.Error{Code: provider.CodeUnsupportedMethod, Message: method + " is not supported"}
	default:
		return i.forward(ctx, method, params...)
	}
}

func (i *Injected) forward(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	raw, err := i.node.Call(ctx, method, params...)
	if err != nil {
		if rpcErr, ok := err.(*chain.RPCError); ok {
			return nil, &provider.Error{Code: rpcErr.Code, Message: rpcErr.Message}
		}
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return raw, nil
}

// --- accounts ---

func (i *Injected) authorised() bool {
	i.mu.Lock()
	connected := i.connected
	i.mu.Unlock()
	if connected {
		return true
	}
	return i.session != nil && i.session.Authorised(i.origin, i.w.Address)
}

func (i *Injected) requestAccounts() (json.RawMessage, error) {
	account := i.Account()
	if !i.authorised() {
		if !i.prompt.ApproveConnection(i.origin, account) {
			i.log.Info("connection declined")
			return nil, provider.UserRejected("")
		}
		if i.session != nil {
			if err := i.session.Authorise(i.origin, i.w.Name, account.Hex()); err != nil {
				i.log.Warn("could not persist connection grant", "err", err)
			}
		}
	}
	i.setConnected(true)
	return json.Marshal([]string{account.Hex()})
}

func (i *Injected) accounts() (json.RawMessage, error) {
	if !i.authorised() {
		return json.RawMessage(`[]`), nil
	}
	return json.Marshal([]string{i.Account().Hex()})
}

func (i *Injected) setConnected(v bool) {
	i.mu.Lock()
	changed := i.connected != v
	i.connected = v
	i.mu.Unlock()
	if !changed {
		return
	}
	if v {
		i.emit(provider.EventAccountsChanged, []string{i.Account().Hex()})
	} else {
		i.emit(provider.EventAccountsChanged, []string{})
	}
}

// Disconnect revokes the origin's grant and reports an empty account list.
func (i *Injected) Disconnect() error {
	if i.session != nil {
		if err := i.session.Revoke(i.origin); err != nil {
			return err
		}
	}
	i.mu.Lock()
	was := i.connected
	i.connected = false
	i.mu.Unlock()
	if was {
		i.emit(provider.EventAccountsChanged, []string{})
	}
	return nil
}

// --- transactions ---

func (i *Injected) sendTransaction(ctx context.Context, params []any) (json.RawMessage, error) {
	account := i.Account()
	if !i.authorised() {
		return nil, &provider.Error{Code: provider.CodeUnauthorized, Message: "account not connected"}
	}
	if !i.w.CanSign() || i.signer == nil {
		return nil, &provider.Error{Code: provider.CodeUnauthorized, Message: ErrWatchOnly.Error()}
	}
	if len(params) == 0 {
		return nil, &provider.Error{Code: -32602, Message: "missing transaction object"}
	}

	var args provider.CallArgs
	if err := roundTrip(params[0], &args); err != nil {
		return nil, &provider.Error{Code: -32602, Message: "invalid transaction object: " + err.Error()}
	}
	if args.From != nil && *args.From != account {
		return nil, &provider.Error{Code: provider.CodeUnauthorized, Message: "from address is not the connected account"}
	}
	args.From = &account

	value := new(big.Int)
	if args.Value != nil {
		value = args.Value.ToInt()
	}

	chainID, err := i.chainID(ctx)
	if err != nil {
		return nil, err
	}

	nonceRaw, err := i.forward(ctx, "eth_getTransactionCount", account.Hex(), "pending")
	if err != nil {
		return nil, fmt.Errorf("getting nonce: %w", err)
	}
	nonce, err := chain.DecodeQuantity(nonceRaw)
	if err != nil {
		return nil, fmt.Errorf("getting nonce: %w", err)
	}

	gas := i.gasFallback
	if raw, err := i.forward(ctx, "eth_estimateGas", args); err == nil {
		if n, err := chain.DecodeQuantity(raw); err == nil && n.IsUint64() {
			gas = n.Uint64()
		}
	} else {
		i.log.Warn("gas estimation failed, using fallback", "gas", gas, "err", err)
	}

	priceRaw, err := i.forward(ctx, "eth_gasPrice")
	if err != nil {
		return nil, fmt.Errorf("getting gas price: %w", err)
	}
	gasPrice, err := chain.DecodeQuantity(priceRaw)
	if err != nil {
		return nil, fmt.Errorf("getting gas price: %w", err)
	}
	feeCap := new(big.Int).Mul(gasPrice, big.NewInt(2))

	summary := TxSummary{
		ChainID: chainID.Uint64(),
		From:    account,
		To:      args.To,
		Value:   value,
		Data:    args.Data,
		Gas:     gas,
		MaxFee:  new(big.Int).Mul(feeCap, new(big.Int).SetUint64(gas)),
	}
	if !i.prompt.ApproveTransaction(summary) {
		i.log.Info("transaction declined", "to", args.To.Hex())
		return nil, provider.UserRejected("")
	}

	to := args.To
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce.Uint64(),
		GasTipCap: gasPrice,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      args.Data,
	})

	raw, err := i.signer.SignTx(tx, chainID)
	if err != nil {
		return nil, err
	}
	i.log.Debug("broadcasting transaction", "hash", tx.Hash().Hex(), "nonce", nonce.Uint64(), "gas", gas)
	return i.forward(ctx, "eth_sendRawTransaction", hexutil.Encode(raw))
}

func (i *Injected) chainID(ctx context.Context) (*big.Int, error) {
	raw, err := i.forward(ctx, "eth_chainId")
	if err != nil {
		return nil, err
	}
	return chain.DecodeQuantity(raw)
}

// --- events ---

// On implements provider.Provider.
func (i *Injected) On(event string, handler func(json.RawMessage)) func() {
	i.mu.Lock()
	defer i.mu.Unlock()
	id := i.nextSub
	i.nextSub++
	if i.subs[event] == nil {
		i.subs[event] = make(map[int]func(json.RawMessage))
	}
	i.subs[event][id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			i.mu.Lock()
			defer i.mu.Unlock()
			delete(i.subs[event], id)
		})
	}
}

func (i *Injected) emit(event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	i.mu.Lock()
	handlers := make([]func(json.RawMessage), 0, len(i.subs[event]))
	for _, h := range i.subs[event] {
		handlers = append(handlers, h)
	}
	i.mu.Unlock()
	for _, h := range handlers {
		h(raw)
	}
}

// Watch polls the node's chain id and the session grant every interval,
// emitting chainChanged and accountsChanged when they change. It returns
// when ctx is done.
func (i *Injected) Watch(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	i.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			i.poll(ctx)
		}
	}
}

func (i *Injected) poll(ctx context.Context) {
	if id, err := i.chainID(ctx); err == nil {
		i.mu.Lock()
		prev := i.lastChain
		i.lastChain = id.Uint64()
		i.mu.Unlock()
		if prev != 0 && prev != id.Uint64() {
			i.emit(provider.EventChainChanged, hexutil.EncodeBig(id))
		}
	} else {
		i.log.Debug("chain poll failed", "err", err)
	}

	// A grant revoked from another process disconnects this one.
	if i.session == nil {
		return
	}
	i.mu.Lock()
	connected := i.connected
	i.mu.Unlock()
	if connected && !i.session.Authorised(i.origin, i.w.Address) {
		i.setConnected(false)
	}
}

func roundTrip(in, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
