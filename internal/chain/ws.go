package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Mohsinsiddi/w3sale/internal/metrics"
	"github.com/gorilla/websocket"
)

// ErrClientClosed is returned for calls on a closed WSClient.
var ErrClientClosed = errors.New("client closed")

const wsWriteTimeout = 10 * time.Second

// WSClient is a JSON-RPC client over a single WebSocket connection. Requests
// may be issued concurrently; responses are matched by id.
type WSClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	nextID  atomic.Uint64

	pendingMu sync.Mutex
	pending   map[uint64]chan rpcResponse

	done    chan struct{}
	closed  atomic.Bool
	readErr error
}

// DialWS connects to a ws:// or wss:// endpoint.
func DialWS(ctx context.Context, url string) (*WSClient, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	c := &WSClient{
		conn:    conn,
		pending: make(map[uint64]chan rpcResponse),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Call sends a request and waits for the matching response.
func (c *WSClient) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	start := time.Now()
	metrics.RPCCallsTotal.WithLabelValues("ws", method).Inc()
	defer func() {
		metrics.RPCLatency.WithLabelValues("ws", method).Observe(time.Since(start).Seconds())
	}()

	result, err := c.do(ctx, method, params)
	if err != nil {
		metrics.RPCErrorsTotal.WithLabelValues("ws", method).Inc()
	}
	return result, err
}

func (c *WSClient) do(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	if params == nil {
		params = []any{}
	}

	id := c.nextID.Add(1)
	ch := make(chan rpcResponse, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	c.writeMu.Lock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	err := c.conn.WriteJSON(rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: id})
	c.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	select {
	case resp := <-ch:
		return resp.unwrap()
	case <-c.done:
		if c.readErr != nil {
			return nil, fmt.Errorf("connection lost: %w", c.readErr)
		}
		return nil, ErrClientClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close closes the connection and fails all in-flight calls.
func (c *WSClient) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	err := c.conn.Close()
	<-c.done
	return err
}

func (c *WSClient) readLoop() {
	defer close(c.done)
	for {
		var resp rpcResponse
		if err := c.conn.ReadJSON(&resp); err != nil {
			if !c.closed.Load() {
				c.readErr = err
			}
			return
		}
		// Subscription notifications carry no id; nothing here subscribes.
		if resp.ID == 0 {
			continue
		}
		c.pendingMu.Lock()
		ch, ok := c.pending[resp.ID]
		c.pendingMu.Unlock()
		if ok {
			select {
			case ch <- resp:
			default:
			}
		}
	}
}
