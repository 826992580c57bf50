// File: server/options.go
// Package server defines functional options for the Server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"log/slog"
	"net/netip"

	"github.com/momentics/puki/api"
)

// ServerOption customizes server initialization.
type ServerOption func(*Server)

// WithBindAddr sets the IPv4 address the listener binds to. Default 0.0.0.0.
func WithBindAddr(addr netip.Addr) ServerOption {
	return func(s *Server) {
		s.bindAddr = addr
	}
}

// WithCPU pins the reactor thread to logical CPU cpu. A negative value
// (the default) leaves scheduling to the OS.
func WithCPU(cpu int) ServerOption {
	return func(s *Server) {
		s.cpu = cpu
	}
}

// WithReadBufferSize overrides the per-read buffer size, which bounds the
// size of a single OnData delivery.
func WithReadBufferSize(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.readBufferSize = n
		}
	}
}

// WithMaxEvents overrides how many readiness events one wait may return.
func WithMaxEvents(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxEvents = n
		}
	}
}

// WithEcho writes every received chunk back to its peer.
func WithEcho(enabled bool) ServerOption {
	return func(s *Server) {
		s.echo = enabled
	}
}

// WithLogger sets the logger for reactor diagnostics.
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithObserver attaches reactor counters.
func WithObserver(o api.Observer) ServerOption {
	return func(s *Server) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithListenerAddrFunc is called synchronously, once, with the bound
// address after the listener is ready. Useful with port 0.
func WithListenerAddrFunc(fn func(addr netip.AddrPort)) ServerOption {
	return func(s *Server) {
		s.listenerAddrFunc = fn
	}
}

// WithMultiplexerFactory replaces the platform multiplexer constructor.
func WithMultiplexerFactory(fn func() (api.Multiplexer, error)) ServerOption {
	return func(s *Server) {
		if fn != nil {
			s.newMultiplexer = fn
		}
	}
}
