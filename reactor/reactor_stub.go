//go:build !linux
// +build !linux

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package reactor

import "github.com/momentics/puki/api"

// NewReactor returns an error for unsupported platforms.
func NewReactor() (api.Multiplexer, error) {
	return nil, api.WrapError(api.ErrCodeNotSupported, "reactor", api.ErrNotSupported)
}
