// File: fake/handler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"fmt"
	"net/netip"
	"sync"
	"time"

	"github.com/momentics/puki/api"
)

// Call is one recorded lifecycle invocation.
type Call struct {
	Kind api.EventKind
	ID   api.ConnID
	Peer netip.AddrPort
	Data string
}

func (c Call) String() string {
	switch c.Kind {
	case api.ConnectEvent:
		return fmt.Sprintf("connect(%d,%s)", c.ID, c.Peer)
	case api.DataEvent:
		return fmt.Sprintf("data(%d,%q)", c.ID, c.Data)
	default:
		return fmt.Sprintf("close(%d)", c.ID)
	}
}

// Handler records every call. It is safe to inspect from other goroutines
// while a reactor drives it.
type Handler struct {
	mu           sync.Mutex
	calls        []Call
	acceptErrors []error
	changed      chan struct{}

	// Hooks run inline after recording, if set.
	ConnectFunc func(id api.ConnID, peer netip.AddrPort)
	DataFunc    func(id api.ConnID, data []byte)
	CloseFunc   func(id api.ConnID)
}

var (
	_ api.Handler            = (*Handler)(nil)
	_ api.AcceptErrorHandler = (*Handler)(nil)
)

// NewHandler creates a new recording handler.
func NewHandler() *Handler {
	return &Handler{changed: make(chan struct{}, 1)}
}

func (h *Handler) record(c Call) {
	h.mu.Lock()
	h.calls = append(h.calls, c)
	h.mu.Unlock()
	h.notify()
}

func (h *Handler) notify() {
	select {
	case h.changed <- struct{}{}:
	default:
	}
}

func (h *Handler) OnConnect(id api.ConnID, peer netip.AddrPort) {
	h.record(Call{Kind: api.ConnectEvent, ID: id, Peer: peer})
	if h.ConnectFunc != nil {
		h.ConnectFunc(id, peer)
	}
}

func (h *Handler) OnData(id api.ConnID, data []byte) {
	h.record(Call{Kind: api.DataEvent, ID: id, Data: string(data)})
	if h.DataFunc != nil {
		h.DataFunc(id, data)
	}
}

func (h *Handler) OnClose(id api.ConnID) {
	h.record(Call{Kind: api.CloseEvent, ID: id})
	if h.CloseFunc != nil {
		h.CloseFunc(id)
	}
}

func (h *Handler) OnAcceptError(err error) {
	h.mu.Lock()
	h.acceptErrors = append(h.acceptErrors, err)
	h.mu.Unlock()
	h.notify()
}

// Calls returns a snapshot of the recorded calls.
func (h *Handler) Calls() []Call {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Call, len(h.calls))
	copy(out, h.calls)
	return out
}

// AcceptErrors returns a snapshot of reported accept failures.
func (h *Handler) AcceptErrors() []error {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]error, len(h.acceptErrors))
	copy(out, h.acceptErrors)
	return out
}

// Count returns how many calls of kind were recorded.
func (h *Handler) Count(kind api.EventKind) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.calls {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// WaitFor polls until cond holds on the recorded calls or timeout expires.
func (h *Handler) WaitFor(timeout time.Duration, cond func(calls []Call) bool) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if cond(h.Calls()) {
			return true
		}
		select {
		case <-h.changed:
		case <-time.After(5 * time.Millisecond):
		case <-deadline.C:
			return cond(h.Calls())
		}
	}
}

// ByConn groups calls per connection, preserving order. Connections are
// split at each OnClose, so a reused descriptor yields separate traces.
func ByConn(calls []Call) [][]Call {
	open := make(map[api.ConnID]int)
	var out [][]Call
	for _, c := range calls {
		idx, ok := open[c.ID]
		if !ok {
			idx = len(out)
			out = append(out, nil)
			open[c.ID] = idx
		}
		out[idx] = append(out[idx], c)
		if c.Kind == api.CloseEvent {
			delete(open, c.ID)
		}
	}
	return out
}
