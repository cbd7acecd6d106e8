package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Mohsinsiddi/w3sale/internal/metrics"
)

// ErrUnsupportedScheme is returned by Dial for URLs that are neither http(s) nor ws(s).
var ErrUnsupportedScheme = errors.New("unsupported RPC URL scheme")

// Caller is a JSON-RPC 2.0 endpoint.
type Caller interface {
	Call(ctx context.Context, method string, params ...any) (json.RawMessage, error)
	Close() error
}

// RPCError is an error object returned by the node.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// Dial returns a Caller for url: http(s) URLs use Client, ws(s) URLs use WSClient.
func Dial(ctx context.Context, url string) (Caller, error) {
	switch {
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		return NewClient(url), nil
	case strings.HasPrefix(url, "ws://"), strings.HasPrefix(url, "wss://"):
		return DialWS(ctx, url)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, url)
	}
}

// Client is a minimal JSON-RPC client over HTTP.
type Client struct {
	url    string
	client *http.Client
	nextID atomic.Uint64
}

// NewClient creates a new HTTP JSON-RPC client pointed at url.
func NewClient(url string) *Client {
	return &Client{
		url: url,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// URL returns the endpoint URL.
func (c *Client) URL() string { return c.url }

// Close is a no-op; HTTP connections are pooled by the transport.
func (c *Client) Close() error { return nil }

// Call performs a single JSON-RPC request and returns the raw result.
// A JSON null result is returned as a nil RawMessage.
func (c *Client) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	start := time.Now()
	metrics.RPCCallsTotal.WithLabelValues("http", method).Inc()
	defer func() {
		metrics.RPCLatency.WithLabelValues("http", method).Observe(time.Since(start).Seconds())
	}()

	result, err := c.do(ctx, method, params)
	if err != nil {
		metrics.RPCErrorsTotal.WithLabelValues("http", method).Inc()
	}
	return result, err
}

func (c *Client) do(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("RPC request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("RPC HTTP status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return rpcResp.unwrap()
}

// --- internal JSON-RPC plumbing ---

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      uint64 `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

func (r *rpcResponse) unwrap() (json.RawMessage, error) {
	if r.Error != nil {
		return nil, r.Error
	}
	if len(r.Result) == 0 || string(r.Result) == "null" {
		return nil, nil
	}
	return r.Result, nil
}

// --- helpers shared by callers of the transport ---

// DecodeQuantity decodes a hex quantity result such as "0x1a".
func DecodeQuantity(raw json.RawMessage) (*big.Int, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("unexpected result %s: %w", raw, err)
	}
	n, ok := ParseBigHex(s)
	if !ok {
		return nil, fmt.Errorf("could not parse quantity %q", s)
	}
	return n, nil
}

// ParseBigHex parses a 0x-prefixed hex quantity. Leading zeros are tolerated.
func ParseBigHex(s string) (*big.Int, bool) {
	digits, ok := strings.CutPrefix(s, "0x")
	if !ok || digits == "" {
		return nil, false
	}
	return new(big.Int).SetString(digits, 16)
}

// BlockNumber returns the latest block number.
func BlockNumber(ctx context.Context, c Caller) (uint64, error) {
	raw, err := c.Call(ctx, "eth_blockNumber")
	if err != nil {
		return 0, err
	}
	n, err := DecodeQuantity(raw)
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// Ping tests an endpoint and returns latency + block number.
func Ping(ctx context.Context, c Caller) (latency time.Duration, blockNum uint64, err error) {
	start := time.Now()
	blockNum, err = BlockNumber(ctx, c)
	return time.Since(start), blockNum, err
}
