// File: api/events.go
// Package api defines lifecycle event values.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "net/netip"

// EventKind discriminates lifecycle events.
type EventKind int

const (
	ConnectEvent EventKind = iota
	DataEvent
	CloseEvent
)

func (k EventKind) String() string {
	switch k {
	case ConnectEvent:
		return "connect"
	case DataEvent:
		return "data"
	case CloseEvent:
		return "close"
	default:
		return "unknown"
	}
}

// LifecycleEvent is a detached, owned copy of a Handler invocation, used
// where events must outlive the reactor callback.
type LifecycleEvent struct {
	Kind EventKind
	ID   ConnID
	Peer netip.AddrPort // ConnectEvent only
	Data []byte         // DataEvent only; owned by the event
}

// Dispatch replays the event onto h.
func (e LifecycleEvent) Dispatch(h Handler) {
	switch e.Kind {
	case ConnectEvent:
		h.OnConnect(e.ID, e.Peer)
	case DataEvent:
		h.OnData(e.ID, e.Data)
	case CloseEvent:
		h.OnClose(e.ID)
	}
}
