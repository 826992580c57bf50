// File: api/observer.go
// Package api defines reactor instrumentation hooks.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// CloseReason tells why a connection left the connection table.
type CloseReason string

const (
	CloseEOF      CloseReason = "eof"
	CloseError    CloseReason = "error"
	CloseShutdown CloseReason = "shutdown"
)

// Observer receives reactor counters. Calls come from the reactor
// goroutine and must be cheap.
type Observer interface {
	ConnectionOpened()
	ConnectionClosed(reason CloseReason)
	AcceptFailed(err error)
	BytesRead(n int)
	BytesEchoed(n int)
}

// NopObserver discards everything.
type NopObserver struct{}

func (NopObserver) ConnectionOpened() {}
func (NopObserver) ConnectionClosed(CloseReason) {}
func (NopObserver) AcceptFailed(error) {}
func (NopObserver) BytesRead(int) {}
func (NopObserver) BytesEchoed(int) {}
