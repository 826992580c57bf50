// File: server/server.go
// Package server implements the connection reactor: one goroutine, locked
// to its OS thread, multiplexing a listening socket, every accepted client
// socket and a cancellation descriptor, and reporting connection lifecycle
// events to an api.Handler.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"log/slog"
	"net/netip"
	"sync/atomic"

	"github.com/momentics/puki/api"
	"github.com/momentics/puki/reactor"
)

const (
	// DefaultReadBufferSize bounds a single read, and so a single OnData.
	DefaultReadBufferSize = 1024
	// DefaultMaxEvents is the readiness batch size of one wait.
	DefaultMaxEvents = 128
)

// Server is a single-use reactor instance.
type Server struct {
	port     uint16
	bindAddr netip.Addr
	cancelFd int
	handler  api.Handler
	// acceptErrs is handler's optional AcceptErrorHandler, or nil.
	acceptErrs api.AcceptErrorHandler

	cpu              int
	readBufferSize   int
	maxEvents        int
	echo             bool
	log              *slog.Logger
	observer         api.Observer
	listenerAddrFunc func(netip.AddrPort)
	newMultiplexer   func() (api.Multiplexer, error)

	started atomic.Bool
}

// New prepares a reactor that will listen on port and stop once cancelFd
// becomes readable. cancelFd is borrowed: the reactor drains it but never
// closes it.
func New(port uint16, cancelFd int, h api.Handler, opts ...ServerOption) *Server {
	s := &Server{
		port:           port,
		bindAddr:       netip.IPv4Unspecified(),
		cpu:            -1,
		cancelFd:       cancelFd,
		handler:        h,
		readBufferSize: DefaultReadBufferSize,
		maxEvents:      DefaultMaxEvents,
		log:            slog.Default(),
		observer:       api.NopObserver{},
		newMultiplexer: reactor.NewReactor,
	}
	if s.handler == nil {
		s.handler = api.HandlerFuncs{}
	}
	if ae, ok := s.handler.(api.AcceptErrorHandler); ok {
		s.acceptErrs = ae
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs a reactor to completion and reports how it ended. It is the
// boundary form of New(...).Run().
func Start(port uint16, cancelFd int, h api.Handler, opts ...ServerOption) api.ExitStatus {
	return api.StatusOf(New(port, cancelFd, h, opts...).Run())
}

// Run blocks until the cancellation descriptor is signaled (returning nil)
// or a setup or multiplexer failure occurs (returning an *api.Error). A
// Server runs at most once.
func (s *Server) Run() error {
	if !s.started.CompareAndSwap(false, true) {
		return api.WrapError(api.ErrCodeInvalidArgument, "server run", api.ErrAlreadyStarted)
	}
	if s.cancelFd < 0 {
		return api.WrapError(api.ErrCodeCancellationUnavailable, "cancellation descriptor", api.ErrInvalidArgument).
			WithContext("fd", s.cancelFd)
	}
	if !s.bindAddr.Is4() {
		return api.WrapError(api.ErrCodeBindFailed, "bind address must be IPv4", api.ErrInvalidArgument).
			WithContext("addr", s.bindAddr.String())
	}
	return s.run()
}
