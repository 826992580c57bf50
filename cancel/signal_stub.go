//go:build !linux
// +build !linux

// File: cancel/signal_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package cancel

import (
	"fmt"

	"github.com/momentics/puki/api"
)

// Signal is unavailable on this platform.
type Signal struct{}

// New returns an error for unsupported platforms.
func New() (*Signal, error) {
	return nil, api.WrapError(api.ErrCodeCancellationUnavailable, "eventfd", api.ErrNotSupported)
}

func (s *Signal) Fd() int { return -1 }

func (s *Signal) Signal() error { return fmt.Errorf("cancel: %w", api.ErrNotSupported) }

func (s *Signal) Signaled() bool { return false }

func (s *Signal) Close() error { return nil }

// Drain is unavailable on this platform.
func Drain(fd int) error {
	return fmt.Errorf("cancel: %w", api.ErrNotSupported)
}
