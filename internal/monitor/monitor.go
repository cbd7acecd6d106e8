// Package monitor polls for transaction receipts until a transaction is mined.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Mohsinsiddi/w3sale/internal/metrics"
	"github.com/Mohsinsiddi/w3sale/internal/provider"
)

const (
	DefaultInterval    = time.Second
	DefaultMaxAttempts = 180
)

var (
	ErrReceiptTimeout   = errors.New("timed out waiting for transaction receipt")
	ErrReceiptPollError = errors.New("receipt poll failed")
)

// ReceiptSource returns a receipt, or nil while the transaction is pending.
type ReceiptSource interface {
	TransactionReceipt(ctx context.Context, h provider.TxHandle) (*provider.Receipt, error)
}

// Sleeper waits d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Monitor waits for transactions to be mined.
type Monitor struct {
	src         ReceiptSource
	interval    time.Duration
	maxAttempts int
	sleep       Sleeper
	log         *slog.Logger
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval sets the delay between polls.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithMaxAttempts bounds the number of polls.
func WithMaxAttempts(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

// WithSleeper replaces the wall-clock sleeper.
func WithSleeper(s Sleeper) Option {
	return func(m *Monitor) {
		if s != nil {
			m.sleep = s
		}
	}
}

// New returns a monitor polling src.
func New(src ReceiptSource, opts ...Option) *Monitor {
	m := &Monitor{
		src:         src,
		interval:    DefaultInterval,
		maxAttempts: DefaultMaxAttempts,
		sleep:       sleepContext,
		log:         slog.Default().With("component", "monitor"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AwaitReceipt polls for h's receipt: once immediately, then once per
// interval. The receipt is returned whatever its status. Cancelling ctx
// stops polling and returns ctx.Err().
func (m *Monitor) AwaitReceipt(ctx context.Context, h provider.TxHandle) (*provider.Receipt, error) {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		metrics.ReceiptPollsTotal.Inc()
		receipt, err := m.src.TransactionReceipt(ctx, h)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %w", ErrReceiptPollError, err)
		}
		if receipt != nil {
			m.log.Debug("receipt found", "hash", h.Hex(), "attempt", attempt, "status", receipt.Status)
			return receipt, nil
		}
		m.log.Debug("receipt pending", "hash", h.Hex(), "attempt", attempt)

		if attempt >= m.maxAttempts {
			return nil, fmt.Errorf("%w after %d polls", ErrReceiptTimeout, attempt)
		}
		if err := m.sleep(ctx, m.interval); err != nil {
			return nil, err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
