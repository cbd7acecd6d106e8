// Package providertest provides a scriptable in-memory wallet provider.
package providertest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/Mohsinsiddi/w3sale/internal/provider"
)

// Handler computes the result of one request.
type Handler func(params []any) (any, error)

// Call records one request seen by the fake.
type Call struct {
	Method string
	Params []any
}

// Fake implements provider.Provider. Unscripted methods fail with code 4200.
type Fake struct {
	mu       sync.Mutex
	handlers map[string]Handler
	routes   map[string]Handler // eth_call by 4-byte selector hex
	calls    []Call
	subs     map[string]map[int]func(json.RawMessage)
	nextSub  int
}

var _ provider.Provider = (*Fake)(nil)

// New returns an empty fake.
func New() *Fake {
	return &Fake{
		handlers: make(map[string]Handler),
		routes:   make(map[string]Handler),
		subs:     make(map[string]map[int]func(json.RawMessage)),
	}
}

// Handle installs fn for method.
func (f *Fake) Handle(method string, fn Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method] = fn
}

// Respond makes method always return result.
func (f *Fake) Respond(method string, result any) {
	f.Handle(method, func([]any) (any, error) { return result, nil })
}

// Fail makes method always return err.
func (f *Fake) Fail(method string, err error) {
	f.Handle(method, func([]any) (any, error) { return nil, err })
}

// RespondCall answers eth_call requests whose data starts with selector
// (e.g. "0x313ce567") with ret, hex encoded.
func (f *Fake) RespondCall(selector string, ret []byte) {
	f.HandleCall(selector, func([]any) (any, error) { return hexutil.Encode(ret), nil })
}

// FailCall makes eth_call requests for selector fail with err.
func (f *Fake) FailCall(selector string, err error) {
	f.HandleCall(selector, func([]any) (any, error) { return nil, err })
}

// HandleCall installs fn for eth_call requests for selector.
func (f *Fake) HandleCall(selector string, fn Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[strings.ToLower(selector)] = fn
}

// Request implements provider.Provider.
func (f *Fake) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.calls = append(f.calls, Call{Method: method, Params: params})
	h, ok := f.handlers[method]
	if method == "eth_call" {
		if rh, found := f.routes[selectorOf(params)]; found {
			h, ok = rh, true
		}
	}
	f.mu.Unlock()

	if !ok {
		return nil, &provider.Error{Code: provider.CodeUnsupportedMethod, Message: "unsupported method " + method}
	}
	result, err := h(params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(result)
}

// On implements provider.Provider.
func (f *Fake) On(event string, handler func(json.RawMessage)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextSub
	f.nextSub++
	if f.subs[event] == nil {
		f.subs[event] = make(map[int]func(json.RawMessage))
	}
	f.subs[event][id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.subs[event], id)
		})
	}
}

// Emit delivers payload to every subscriber of event synchronously.
func (f *Fake) Emit(event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("providertest: marshal %s payload: %v", event, err))
	}
	f.mu.Lock()
	handlers := make([]func(json.RawMessage), 0, len(f.subs[event]))
	for _, h := range f.subs[event] {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()

	for _, h := range handlers {
		h(raw)
	}
}

// Subscribers returns the number of live handlers for event.
func (f *Fake) Subscribers(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[event])
}

// Calls returns the recorded requests for method, or all requests when method is "".
func (f *Fake) Calls(method string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// DecodeParam re-decodes params[i] into dst through its JSON form.
func DecodeParam(params []any, i int, dst any) error {
	if i >= len(params) {
		return fmt.Errorf("param %d missing", i)
	}
	raw, err := json.Marshal(params[i])
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// CallArgs decodes the transaction/call object of a recorded request.
func (c Call) CallArgs() (provider.CallArgs, error) {
	var args provider.CallArgs
	err := DecodeParam(c.Params, 0, &args)
	return args, err
}

func selectorOf(params []any) string {
	var args provider.CallArgs
	if err := DecodeParam(params, 0, &args); err != nil || len(args.Data) < 4 {
		return ""
	}
	return hexutil.Encode(args.Data[:4])
}
