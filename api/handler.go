// File: api/handler.go
// Package api defines the connection lifecycle Handler interface.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "net/netip"

// ConnID identifies a connection while it is open. It is the socket
// descriptor and may be reused by a later connection after OnClose.
type ConnID int

// Handler receives connection lifecycle events.
//
// All methods are called synchronously from the reactor goroutine and must
// not block: a stalled handler stalls every other connection. For a given
// ConnID, OnConnect precedes any OnData, which precede OnClose.
type Handler interface {
	OnConnect(id ConnID, peer netip.AddrPort)
	// OnData delivers exactly the bytes returned by one read. data is only
	// valid for the duration of the call; copy it to retain it.
	OnData(id ConnID, data []byte)
	OnClose(id ConnID)
}

// AcceptErrorHandler is optionally implemented by a Handler that wants to
// observe recoverable accept failures.
type AcceptErrorHandler interface {
	OnAcceptError(err error)
}

// HandlerFuncs adapts plain functions to Handler. Nil fields are no-ops.
type HandlerFuncs struct {
	Connect     func(id ConnID, peer netip.AddrPort)
	Data        func(id ConnID, data []byte)
	Close       func(id ConnID)
	AcceptError func(err error)
}

var (
	_ Handler            = HandlerFuncs{}
	_ AcceptErrorHandler = HandlerFuncs{}
)

func (f HandlerFuncs) OnConnect(id ConnID, peer netip.AddrPort) {
	if f.Connect != nil {
		f.Connect(id, peer)
	}
}

func (f HandlerFuncs) OnData(id ConnID, data []byte) {
	if f.Data != nil {
		f.Data(id, data)
	}
}

func (f HandlerFuncs) OnClose(id ConnID) {
	if f.Close != nil {
		f.Close(id)
	}
}

func (f HandlerFuncs) OnAcceptError(err error) {
	if f.AcceptError != nil {
		f.AcceptError(err)
	}
}
