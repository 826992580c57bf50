//go:build !linux
// +build !linux

// File: server/server_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package server

import "github.com/momentics/puki/api"

func (s *Server) run() error {
	return api.WrapError(api.ErrCodeMultiplexerFatal, "reactor", api.ErrNotSupported)
}
