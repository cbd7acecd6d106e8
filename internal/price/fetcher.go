// Package price converts native-currency amounts to fiat via CoinGecko.
package price

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// ErrNoPrice is returned for networks whose native coin has no market price,
// which includes every testnet.
var ErrNoPrice = errors.New("no market price")

// coinGeckoIDs maps network names to the CoinGecko ID of their native coin.
var coinGeckoIDs = map[string]string{
	"ethereum": "ethereum",
	"base":     "ethereum",
	"arbitrum": "ethereum",
	"optimism": "ethereum",
	"polygon":  "polygon-ecosystem-token",
	"bnb":      "binancecoin",
}

// Fetcher retrieves native coin prices.
type Fetcher struct {
	client   *http.Client
	baseURL  string
	currency string
}

// NewFetcher creates a fetcher quoting in currency (default usd).
func NewFetcher(currency string) *Fetcher {
	if currency == "" {
		currency = "usd"
	}
	return &Fetcher{
		client:   &http.Client{Timeout: 10 * time.Second},
		baseURL:  defaultBaseURL,
		currency: strings.ToLower(currency),
	}
}

// Currency is the quote currency, lowercased.
func (f *Fetcher) Currency() string { return f.currency }

// NativePrice returns the price of one unit of network's native coin.
func (f *Fetcher) NativePrice(ctx context.Context, network string) (decimal.Decimal, error) {
	id, ok := coinGeckoIDs[strings.ToLower(network)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%s: %w", network, ErrNoPrice)
	}

	u := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=%s",
		f.baseURL, url.QueryEscape(id), url.QueryEscape(f.currency))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetching price: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("fetching price: HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("reading price response: %w", err)
	}

	// {"ethereum":{"usd":1234.56}}
	var raw map[string]map[string]decimal.Decimal
	if err := json.Unmarshal(body, &raw); err != nil {
		return decimal.Zero, fmt.Errorf("parsing price response: %w", err)
	}
	p, ok := raw[id][f.currency]
	if !ok {
		return decimal.Zero, fmt.Errorf("%s: %w", id, ErrNoPrice)
	}
	return p, nil
}

// Convert returns amount (a native-currency display string) in fiat,
// rounded to cents.
func (f *Fetcher) Convert(ctx context.Context, network, amount string) (decimal.Decimal, error) {
	a, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, err
	}
	p, err := f.NativePrice(ctx, network)
	if err != nil {
		return decimal.Zero, err
	}
	return a.Mul(p).Round(2), nil
}
