// File: adapters/handler_adapter.go
// Package adapters
// Author: momentics <momentics@gmail.com>
//
// Middleware over api.Handler: chaining, fan-out, panic recovery, and the
// log-line handler puki runs by default.

package adapters

import (
	"log/slog"
	"net/netip"

	"github.com/momentics/puki/api"
)

// Middleware augments an api.Handler.
type Middleware func(api.Handler) api.Handler

// Chain applies middleware in order: first in slice is outermost.
func Chain(base api.Handler, mw ...Middleware) api.Handler {
	h := base
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

// forwardAcceptError passes err on if h wants accept failures.
func forwardAcceptError(h api.Handler, err error) {
	if ae, ok := h.(api.AcceptErrorHandler); ok {
		ae.OnAcceptError(err)
	}
}

// Tee fans each event out to every handler, in order.
func Tee(hs ...api.Handler) api.Handler {
	return tee(hs)
}

type tee []api.Handler

func (t tee) OnConnect(id api.ConnID, peer netip.AddrPort) {
	for _, h := range t {
		h.OnConnect(id, peer)
	}
}

func (t tee) OnData(id api.ConnID, data []byte) {
	for _, h := range t {
		h.OnData(id, data)
	}
}

func (t tee) OnClose(id api.ConnID) {
	for _, h := range t {
		h.OnClose(id)
	}
}

func (t tee) OnAcceptError(err error) {
	for _, h := range t {
		forwardAcceptError(h, err)
	}
}

// Logging logs every lifecycle transition before passing it on.
func Logging(log *slog.Logger) Middleware {
	return func(next api.Handler) api.Handler {
		return &loggingHandler{next: next, log: log}
	}
}

// NewLogHandler returns a handler whose only effect is logging.
func NewLogHandler(log *slog.Logger) api.Handler {
	return Logging(log)(api.HandlerFuncs{})
}

type loggingHandler struct {
	next api.Handler
	log  *slog.Logger
}

func (h *loggingHandler) OnConnect(id api.ConnID, peer netip.AddrPort) {
	h.log.Info("new connection", "fd", int(id), "addr", peer.String())
	h.next.OnConnect(id, peer)
}

func (h *loggingHandler) OnData(id api.ConnID, data []byte) {
	h.log.Info("received data", "fd", int(id), "len", len(data),
		"data", lossyString(data))
	h.next.OnData(id, data)
}

func (h *loggingHandler) OnClose(id api.ConnID) {
	h.log.Info("connection closed", "fd", int(id))
	h.next.OnClose(id)
}

// OnAcceptError logs at debug; the reactor already warns once per run of
// failures and exhaustion can repeat this thousands of times a second.
func (h *loggingHandler) OnAcceptError(err error) {
	h.log.Debug("accept failed", "error", err)
	forwardAcceptError(h.next, err)
}

// Recovery recovers from panics in the wrapped handler so a faulty handler
// cannot take the reactor down.
func Recovery(log *slog.Logger) Middleware {
	return func(next api.Handler) api.Handler {
		return &recoveryHandler{next: next, log: log}
	}
}

type recoveryHandler struct {
	next api.Handler
	log  *slog.Logger
}

func (h *recoveryHandler) guard(event string, id api.ConnID) {
	if r := recover(); r != nil {
		h.log.Error("handler panic recovered", "event", event, "fd", int(id), "panic", r)
	}
}

func (h *recoveryHandler) OnConnect(id api.ConnID, peer netip.AddrPort) {
	defer h.guard("connect", id)
	h.next.OnConnect(id, peer)
}

func (h *recoveryHandler) OnData(id api.ConnID, data []byte) {
	defer h.guard("data", id)
	h.next.OnData(id, data)
}

func (h *recoveryHandler) OnClose(id api.ConnID) {
	defer h.guard("close", id)
	h.next.OnClose(id)
}

func (h *recoveryHandler) OnAcceptError(err error) {
	defer h.guard("accept_error", -1)
	forwardAcceptError(h.next, err)
}
