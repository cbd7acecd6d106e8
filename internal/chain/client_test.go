package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// rpcMock creates a test HTTP server that serves a fixed JSON-RPC response
// per method. Pass method→result pairs; any unknown method returns an RPC error.
func rpcMock(t *testing.T, responses map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			ID     uint64 `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if result, ok := responses[req.Method]; ok {
			json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
				"jsonrpc": "2.0",
				"id":      req.ID,
				"result":  result,
			})
		} else {
			json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
				"jsonrpc": "2.0",
				"id":      req.ID,
				"error":   map[string]interface{}{"code": -32601, "message": "method not found"},
			})
		}
	}))
}

// rpcErrorServer creates a test HTTP server that always returns a JSON-RPC error.
func rpcErrorServer(t *testing.T, code int, msg string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct{ ID uint64 `json:"id"` }
		json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]interface{}{"code": code, "message": msg},
		})
	}))
}

// ---------------------------------------------------------------------------
// Client.Call
// ---------------------------------------------------------------------------

func TestClientCallResult(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_chainId": "0xaa36a7"})
	defer srv.Close()

	raw, err := NewClient(srv.URL).Call(context.Background(), "eth_chainId")
	require.NoError(t, err)
	assert.JSONEq(t, `"0xaa36a7"`, string(raw))
}

func TestClientCallNullResult(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_getTransactionReceipt": nil})
	defer srv.Close()

	raw, err := NewClient(srv.URL).Call(context.Background(), "eth_getTransactionReceipt", "0xabc")
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestClientCallRPCError(t *testing.T) {
	srv := rpcErrorServer(t, -32000, "insufficient funds for gas * price + value")
	defer srv.Close()

	_, err := NewClient(srv.URL).Call(context.Background(), "eth_sendRawTransaction", "0x00")
	require.Error(t, err)

	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32000, rpcErr.Code)
	assert.Contains(t, rpcErr.Message, "insufficient funds")
}

func TestClientCallSendsParams(t *testing.T) {
	var got struct {
		JSONRPC string            `json:"jsonrpc"`
		Method  string            `json:"method"`
		Params  []json.RawMessage `json:"params"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got) //nolint:errcheck
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Call(context.Background(), "eth_call",
		map[string]string{"to": "0x01", "data": "0x02"}, "latest")
	require.NoError(t, err)
	assert.Equal(t, "2.0", got.JSONRPC)
	assert.Equal(t, "eth_call", got.Method)
	require.Len(t, got.Params, 2)
	assert.JSONEq(t, `"latest"`, string(got.Params[1]))
}

func TestClientCallNoParamsIsEmptyArray(t *testing.T) {
	var body map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x1"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Call(context.Background(), "eth_blockNumber")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(body["params"]))
}

func TestClientCallBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{not valid json`)) //nolint:errcheck
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Call(context.Background(), "eth_chainId")
	require.Error(t, err)
}

func TestClientCallHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Call(context.Background(), "eth_chainId")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestClientCallUnreachable(t *testing.T) {
	_, err := NewClient("http://127.0.0.1:1").Call(context.Background(), "eth_chainId")
	require.Error(t, err)
}

func TestClientCallCanceledContext(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_chainId": "0x1"})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(srv.URL).Call(ctx, "eth_chainId")
	require.Error(t, err)
}

// ---------------------------------------------------------------------------
// Dial / helpers
// ---------------------------------------------------------------------------

func TestDialHTTP(t *testing.T) {
	c, err := Dial(context.Background(), "https://rpc.example.org")
	require.NoError(t, err)
	_, ok := c.(*Client)
	assert.True(t, ok)
}

func TestDialUnsupportedScheme(t *testing.T) {
	_, err := Dial(context.Background(), "ftp://rpc.example.org")
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
}

func TestDecodeQuantity(t *testing.T) {
	n, err := DecodeQuantity(json.RawMessage(`"0x1a"`))
	require.NoError(t, err)
	assert.Equal(t, int64(26), n.Int64())

	n, err = DecodeQuantity(json.RawMessage(`"0x01"`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n.Int64())

	_, err = DecodeQuantity(json.RawMessage(`"zz"`))
	assert.Error(t, err)

	_, err = DecodeQuantity(json.RawMessage(`42`))
	assert.Error(t, err)
}

func TestBlockNumberAndPing(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_blockNumber": "0x100"})
	defer srv.Close()

	c := NewClient(srv.URL)
	n, err := BlockNumber(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, uint64(256), n)

	latency, block, err := Ping(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, uint64(256), block)
	assert.Greater(t, latency, time.Duration(0))
}
