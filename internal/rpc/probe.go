package rpc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Mohsinsiddi/w3sale/internal/chain"
)

const (
	probeTimeout  = 5 * time.Second
	probeParallel = 8
)

// Dialer opens a JSON-RPC connection. chain.Dial in production.
type Dialer func(ctx context.Context, url string) (chain.Caller, error)

// Probe pings every URL in parallel. Results keep the order of urls.
func Probe(ctx context.Context, urls []string, dial Dialer) []Endpoint {
	out := make([]Endpoint, len(urls))
	var g errgroup.Group
	g.SetLimit(probeParallel)
	for i, u := range urls {
		g.Go(func() error {
			out[i] = probe(ctx, u, dial)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func probe(ctx context.Context, url string, dial Dialer) Endpoint {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	c, err := dial(ctx, url)
	if err != nil {
		return Endpoint{URL: url, Err: err}
	}
	defer c.Close()

	latency, block, err := chain.Ping(ctx, c)
	return Endpoint{URL: url, Latency: latency, BlockNumber: block, Err: err}
}

// Connect returns a live client for the best of urls. A single URL is dialled
// without probing.
func Connect(ctx context.Context, urls []string, algo Algorithm, dial Dialer) (chain.Caller, string, error) {
	if dial == nil {
		dial = chain.Dial
	}
	switch len(urls) {
	case 0:
		return nil, "", ErrNoHealthyRPC
	case 1:
		c, err := dial(ctx, urls[0])
		if err != nil {
			return nil, "", fmt.Errorf("dialing %s: %w", urls[0], err)
		}
		return c, urls[0], nil
	}

	endpoints := Probe(ctx, urls, dial)
	for _, e := range endpoints {
		if !e.Healthy() {
			slog.Debug("rpc endpoint unhealthy", "url", e.URL, "err", e.Err)
		}
	}
	winner, err := Pick(endpoints, algo)
	if err != nil {
		return nil, "", err
	}
	slog.Debug("rpc endpoint selected", "url", winner.URL, "latency", winner.Latency, "block", winner.BlockNumber)

	c, err := dial(ctx, winner.URL)
	if err != nil {
		return nil, "", fmt.Errorf("dialing %s: %w", winner.URL, err)
	}
	return c, winner.URL, nil
}
