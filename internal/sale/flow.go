// Package sale drives the token sale: wallet connection, sale-state reads,
// approval and purchase, as an explicit state machine.
package sale

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/Mohsinsiddi/w3sale/internal/contract"
	"github.com/Mohsinsiddi/w3sale/internal/metrics"
	"github.com/Mohsinsiddi/w3sale/internal/provider"
	"github.com/Mohsinsiddi/w3sale/internal/units"
)

const (
	DefaultFallbackPrice     = "0.001"
	DefaultFallbackAvailable = "1000000"
)

// Gateway is the wallet surface the flow needs; *provider.Gateway implements it.
type Gateway interface {
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	Accounts(ctx context.Context) ([]common.Address, error)
	ChainID(ctx context.Context) (provider.ChainID, error)
	ReadCall(ctx context.Context, to common.Address, payload []byte) ([]byte, error)
	SendTransaction(ctx context.Context, tx provider.TxRequest) (provider.TxHandle, error)
	OnAccountsChanged(fn func([]common.Address)) func()
	OnChainChanged(fn func(provider.ChainID)) func()
}

// ReceiptWaiter blocks until a transaction is mined; *monitor.Monitor implements it.
type ReceiptWaiter interface {
	AwaitReceipt(ctx context.Context, h provider.TxHandle) (*provider.Receipt, error)
}

// Config is the static sale configuration.
type Config struct {
	SaleContract  common.Address
	TokenContract common.Address
	// TokenDecimals is used as given; 0 is a valid token precision.
	TokenDecimals     int
	TokenSymbol       string
	FallbackPrice     string
	FallbackAvailable string
	AllowedChains     []provider.ChainID
	// MinPurchase and MaxPurchase bound Buy amounts in whole tokens; "" or "0" disables a bound.
	MinPurchase string
	MaxPurchase string
}

func (c *Config) applyDefaults() {
	if c.FallbackPrice == "" {
		c.FallbackPrice = DefaultFallbackPrice
	}
	if c.FallbackAvailable == "" {
		c.FallbackAvailable = DefaultFallbackAvailable
	}
	if c.TokenSymbol == "" {
		c.TokenSymbol = "TOKEN"
	}
}

// ChainAllowed reports whether id is on the allow-list.
func (c Config) ChainAllowed(id provider.ChainID) bool {
	return slices.Contains(c.AllowedChains, id)
}

// Snapshot is the public sale state. A field flagged as fallback could not be
// read and holds its configured default.
type Snapshot struct {
	Price     string
	Sold      string
	Available string

	PriceFallback     bool
	SoldFallback      bool
	AvailableFallback bool
}

// Flow is the sale facade. It is safe for concurrent use; at most one write
// (approve or buy) is in flight at a time.
type Flow struct {
	gw  Gateway
	mon ReceiptWaiter
	cfg Config
	log *slog.Logger

	mu     sync.Mutex
	status Status
	unsubs []func()
}

// New returns a disconnected flow.
func New(gw Gateway, mon ReceiptWaiter, cfg Config) *Flow {
	cfg.applyDefaults()
	f := &Flow{
		gw:  gw,
		mon: mon,
		cfg: cfg,
		log: slog.Default().With("component", "sale"),
	}
	metrics.SetFlowState(Disconnected.String(), stateNames)
	return f
}

// Config returns the flow's configuration with defaults applied.
func (f *Flow) Config() Config { return f.cfg }

// Status returns the current status.
func (f *Flow) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// setState must be called with f.mu held.
func (f *Flow) setState(s State) {
	if f.status.State == s {
		return
	}
	f.log.Info("flow transition", "from", f.status.State, "to", s)
	f.status.State = s
	metrics.SetFlowState(s.String(), stateNames)
}

// disconnect must be called with f.mu held.
func (f *Flow) disconnect(msg string) {
	f.setState(Disconnected)
	f.status.Account = common.Address{}
	f.status.Outcome = OutcomeNone
	f.status.Message = msg
}

// --- connection ---

// Connect asks the wallet for an account and validates its chain.
// From Settled it acts as a reset.
func (f *Flow) Connect(ctx context.Context) (common.Address, error) {
	if f.Status().State.Writing() {
		return common.Address{}, ErrBusy
	}

	accounts, err := f.gw.RequestAccounts(ctx)
	if err != nil {
		f.connectFailed(err)
		return common.Address{}, err
	}
	return f.validateAndConnect(ctx, accounts[0])
}

// Restore connects without prompting when the wallet already authorised an
// account. It reports whether the flow is now connected.
func (f *Flow) Restore(ctx context.Context) (common.Address, bool) {
	if st := f.Status(); st.State.Writing() {
		return st.Account, true
	}
	accounts, err := f.gw.Accounts(ctx)
	if err != nil || len(accounts) == 0 {
		f.mu.Lock()
		if f.status.State != Disconnected {
			f.disconnect("")
		}
		f.mu.Unlock()
		return common.Address{}, false
	}
	addr, err := f.validateAndConnect(ctx, accounts[0])
	return addr, err == nil
}

func (f *Flow) validateAndConnect(ctx context.Context, account common.Address) (common.Address, error) {
	id, err := f.gw.ChainID(ctx)
	if err != nil {
		f.connectFailed(err)
		return common.Address{}, err
	}
	if !f.cfg.ChainAllowed(id) {
		err := fmt.Errorf("%w: chain %d", ErrUnsupportedNetwork, id)
		f.mu.Lock()
		f.status.Chain = id
		f.mu.Unlock()
		f.connectFailed(err)
		return common.Address{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status.State.Writing() {
		return common.Address{}, ErrBusy
	}
	f.status.Account = account
	f.status.Chain = id
	f.status.Outcome = OutcomeNone
	f.status.Message = ""
	f.setState(Connected)
	f.log.Info("wallet connected", "account", account.Hex(), "chain", uint64(id))
	return account, nil
}

func (f *Flow) connectFailed(err error) {
	f.log.Warn("connect failed", "err", err)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status.State.Writing() {
		return
	}
	f.disconnect(Message(err))
}

// --- events ---

// Watch applies wallet account and chain changes to the flow and then calls
// fn. The returned function removes both subscriptions.
func (f *Flow) Watch(fn func(Change)) func() {
	unsubAccounts := f.gw.OnAccountsChanged(func(accounts []common.Address) {
		f.mu.Lock()
		switch {
		case len(accounts) == 0:
			f.disconnect("Wallet disconnected.")
		case f.status.State != Disconnected:
			f.status.Account = accounts[0]
		}
		st := f.status
		f.mu.Unlock()
		f.log.Info("accounts changed", "count", len(accounts))
		if fn != nil {
			fn(Change{Kind: AccountsChanged, Status: st})
		}
	})
	unsubChain := f.gw.OnChainChanged(func(id provider.ChainID) {
		f.mu.Lock()
		f.status.Chain = id
		if !f.cfg.ChainAllowed(id) && f.status.State != Disconnected {
			f.disconnect(Message(ErrUnsupportedNetwork))
		}
		st := f.status
		f.mu.Unlock()
		f.log.Info("chain changed", "chain", uint64(id))
		if fn != nil {
			fn(Change{Kind: ChainChanged, Status: st})
		}
	})

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			unsubAccounts()
			unsubChain()
		})
	}
	f.mu.Lock()
	f.unsubs = append(f.unsubs, unsub)
	f.mu.Unlock()
	return unsub
}

// Close removes every subscription made through Watch.
func (f *Flow) Close() {
	f.mu.Lock()
	unsubs := f.unsubs
	f.unsubs = nil
	f.mu.Unlock()
	for _, u := range unsubs {
		u()
	}
}

// --- reads ---

// FetchSaleState reads price, sold and available concurrently. Each value
// falls back to its default independently; the call never fails.
func (f *Flow) FetchSaleState(ctx context.Context) Snapshot {
	var s Snapshot
	var g errgroup.Group

	g.Go(func() error {
		s.Price, s.PriceFallback = f.readDisplay(ctx, "price", f.cfg.SaleContract,
			contract.TokenPrice, units.NativeDecimals, f.cfg.FallbackPrice)
		return nil
	})
	g.Go(func() error {
		s.Sold, s.SoldFallback = f.readDisplay(ctx, "sold", f.cfg.SaleContract,
			contract.TokensSold, f.cfg.TokenDecimals, "0")
		return nil
	})
	g.Go(func() error {
		s.Available, s.AvailableFallback = f.readDisplay(ctx, "available", f.cfg.SaleContract,
			contract.TokensAvailable, f.cfg.TokenDecimals, f.cfg.FallbackAvailable)
		return nil
	})
	_ = g.Wait()
	return s
}

func (f *Flow) readDisplay(ctx context.Context, field string, to common.Address,
	build func() (contract.Payload, error), decimals int, fallback string) (string, bool) {
	payload, err := build()
	if err == nil {
		var v *big.Int
		if v, err = f.readUint(ctx, to, payload); err == nil {
			return units.ToDisplay(v, decimals), false
		}
	}
	f.log.Warn("sale read failed, using fallback", "field", field, "fallback", fallback, "err", err)
	metrics.SaleReadFallbacksTotal.WithLabelValues(field).Inc()
	return fallback, true
}

func (f *Flow) readUint(ctx context.Context, to common.Address, payload contract.Payload) (*big.Int, error) {
	ret, err := f.gw.ReadCall(ctx, to, payload)
	if err != nil {
		return nil, err
	}
	v, err := contract.DecodeUint256(ret)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", provider.ErrReadCallFailed, err)
	}
	return v, nil
}

// allowance reads the sale contract's allowance over owner's tokens.
func (f *Flow) allowance(ctx context.Context, owner common.Address) (*big.Int, error) {
	payload, err := contract.Allowance(owner, f.cfg.SaleContract)
	if err != nil {
		return nil, err
	}
	return f.readUint(ctx, f.cfg.TokenContract, payload)
}

// GetAllowance returns owner's allowance for the sale contract in token
// integer units, or zero if it cannot be read.
func (f *Flow) GetAllowance(ctx context.Context, owner common.Address) *big.Int {
	v, err := f.allowance(ctx, owner)
	if err != nil {
		f.log.Warn("allowance read failed", "owner", owner.Hex(), "err", err)
		return new(big.Int)
	}
	return v
}

// GetBalance returns owner's token balance for display, or "0" if it cannot be read.
func (f *Flow) GetBalance(ctx context.Context, owner common.Address) string {
	payload, err := contract.BalanceOf(owner)
	if err == nil {
		var v *big.Int
		if v, err = f.readUint(ctx, f.cfg.TokenContract, payload); err == nil {
			return units.ToDisplay(v, f.cfg.TokenDecimals)
		}
	}
	f.log.Warn("balance read failed", "owner", owner.Hex(), "err", err)
	return "0"
}

// --- writes ---

// begin moves Connected to the write state w and returns the account to send from.
func (f *Flow) begin(w State) (common.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.status.State {
	case Disconnected:
		return common.Address{}, ErrNotConnected
	case Approving, Buying:
		return common.Address{}, ErrBusy
	case Settled:
		return common.Address{}, ErrSettled
	}
	f.setState(w)
	f.status.Outcome = OutcomeNone
	f.status.Message = ""
	f.status.LastTx = common.Hash{}
	return f.status.Account, nil
}

// end leaves the write state w. Cancellation returns to Connected silently.
// If the flow left w meanwhile (wallet disconnected), only the error is returned.
func (f *Flow) end(ctx context.Context, w State, next State, outcome Outcome, msg string, err error) error {
	kind := "approve"
	if w == Buying {
		kind = "buy"
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		if f.status.State == w {
			f.setState(Connected)
		}
		metrics.TransactionsTotal.WithLabelValues(kind, "cancelled").Inc()
		f.log.Info("write cancelled", "kind", kind)
		return err
	}

	result := "success"
	if err != nil {
		result = "failure"
		f.log.Warn("write failed", "kind", kind, "err", err)
	}
	metrics.TransactionsTotal.WithLabelValues(kind, result).Inc()

	if f.status.State != w {
		return err
	}
	f.setState(next)
	f.status.Outcome = outcome
	f.status.Message = msg
	return err
}

func (f *Flow) fail(ctx context.Context, w State, err error) error {
	return f.end(ctx, w, Settled, OutcomeFailure, Message(err), err)
}

// submit sends tx and waits for it to be mined successfully.
func (f *Flow) submit(ctx context.Context, w State, tx provider.TxRequest) error {
	h, err := f.gw.SendTransaction(ctx, tx)
	if err != nil {
		return err
	}
	f.mu.Lock()
	if f.status.State == w {
		f.status.LastTx = h
	}
	f.mu.Unlock()

	receipt, err := f.mon.AwaitReceipt(ctx, h)
	if err != nil {
		return err
	}
	if !receipt.Succeeded() {
		return fmt.Errorf("%w: %s reverted in block %d", ErrTransactionFailed, h.Hex(), receipt.BlockNumber)
	}
	return nil
}

// Approve lets the sale contract spend amount tokens. When the existing
// allowance already covers amount nothing is submitted.
func (f *Flow) Approve(ctx context.Context, amount string) error {
	amt, err := f.parseAmount(amount)
	if err != nil {
		return err
	}
	owner, err := f.begin(Approving)
	if err != nil {
		return err
	}

	current, err := f.allowance(ctx, owner)
	if err != nil {
		return f.fail(ctx, Approving, err)
	}
	if current.Cmp(amt) >= 0 {
		f.log.Info("allowance already sufficient", "allowance", current, "amount", amt)
		return f.end(ctx, Approving, Connected, OutcomeNone, "Allowance already sufficient.", nil)
	}

	payload, err := contract.Approve(f.cfg.SaleContract, amt)
	if err != nil {
		return f.fail(ctx, Approving, err)
	}
	err = f.submit(ctx, Approving, provider.TxRequest{From: owner, To: f.cfg.TokenContract, Data: payload})
	if err != nil {
		return f.fail(ctx, Approving, err)
	}
	return f.end(ctx, Approving, Connected, OutcomeNone,
		fmt.Sprintf("Approved %s %s.", units.ToDisplay(amt, f.cfg.TokenDecimals), f.cfg.TokenSymbol), nil)
}

// Buy purchases amount tokens, paying amount × tokenPrice in the native currency.
func (f *Flow) Buy(ctx context.Context, amount string) error {
	amt, err := f.parseAmount(amount)
	if err != nil {
		return err
	}
	if err := f.checkLimits(amt); err != nil {
		return err
	}
	owner, err := f.begin(Buying)
	if err != nil {
		return err
	}

	pricePayload, err := contract.TokenPrice()
	if err != nil {
		return f.fail(ctx, Buying, err)
	}
	price, err := f.readUint(ctx, f.cfg.SaleContract, pricePayload)
	if err != nil {
		return f.fail(ctx, Buying, err)
	}
	cost := Cost(amt, f.cfg.TokenDecimals, price)
	f.log.Info("buying", "amount", units.ToDisplay(amt, f.cfg.TokenDecimals), "cost", units.FormatNative(cost))

	payload, err := contract.BuyTokens(amt)
	if err != nil {
		return f.fail(ctx, Buying, err)
	}
	err = f.submit(ctx, Buying, provider.TxRequest{From: owner, To: f.cfg.SaleContract, Data: payload, Value: cost})
	if err != nil {
		return f.fail(ctx, Buying, err)
	}
	return f.end(ctx, Buying, Settled, OutcomeSuccess,
		fmt.Sprintf("Purchased %s %s for %s.", units.ToDisplay(amt, f.cfg.TokenDecimals), f.cfg.TokenSymbol,
			units.FormatNative(cost)), nil)
}

// Reset returns a settled flow to Connected.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status.State != Settled {
		return
	}
	f.setState(Connected)
	f.status.Outcome = OutcomeNone
	f.status.Message = ""
}

// Cost returns the native-currency value of amount token units at
// priceWei per whole token, truncated to whole wei.
func Cost(amount *big.Int, tokenDecimals int, priceWei *big.Int) *big.Int {
	return units.ToExact(amount, tokenDecimals).
		Mul(decimal.NewFromBigInt(priceWei, 0)).
		Truncate(0).
		BigInt()
}

func (f *Flow) parseAmount(amount string) (*big.Int, error) {
	amt, err := units.ToIntegerUnits(amount, f.cfg.TokenDecimals)
	if err != nil {
		return nil, err
	}
	if amt.Sign() <= 0 {
		return nil, fmt.Errorf("%w: must be greater than zero", units.ErrInvalidAmount)
	}
	return amt, nil
}

func (f *Flow) checkLimits(amt *big.Int) error {
	whole := units.ToExact(amt, f.cfg.TokenDecimals)
	if lim, ok := limit(f.cfg.MinPurchase); ok && whole.LessThan(lim) {
		return fmt.Errorf("%w: minimum is %s", ErrPurchaseLimit, lim)
	}
	if lim, ok := limit(f.cfg.MaxPurchase); ok && whole.GreaterThan(lim) {
		return fmt.Errorf("%w: maximum is %s", ErrPurchaseLimit, lim)
	}
	return nil
}

func limit(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, false
	}
	d, err := units.ParseDecimal(s)
	if err != nil || d.IsZero() {
		return decimal.Zero, false
	}
	return d, true
}
