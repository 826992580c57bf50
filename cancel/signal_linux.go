//go:build linux
// +build linux

// File: cancel/signal_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// eventfd(2)-backed cancellation signal.

package cancel

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/momentics/puki/api"
	"golang.org/x/sys/unix"
)

// Signal is a one-shot wakeup object. Signal may be called from any
// goroutine; Fd is handed to the reactor, which only polls and drains it.
type Signal struct {
	mu     sync.Mutex
	fd     int
	closed bool
}

// New allocates the eventfd.
func New() (*Signal, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		if errors.Is(err, unix.EMFILE) || errors.Is(err, unix.ENFILE) || errors.Is(err, unix.ENOMEM) {
			return nil, api.WrapError(api.ErrCodeResourceExhausted, "eventfd",
				fmt.Errorf("%w: %w", api.ErrResourceExhausted, err))
		}
		return nil, api.WrapError(api.ErrCodeCancellationUnavailable, "eventfd", err)
	}
	return &Signal{fd: fd}, nil
}

// Fd returns the pollable descriptor, or -1 after Close.
func (s *Signal) Fd() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return -1
	}
	return s.fd
}

// Signal writes a single 8-byte increment. Repeated calls are harmless:
// the counter only grows, and a saturated counter already reads as signaled.
func (s *Signal) Signal() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return api.ErrSignalClosed
	}
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	for {
		_, err := unix.Write(s.fd, buf[:])
		switch err {
		case nil, unix.EAGAIN:
			return nil
		case unix.EINTR:
			continue
		default:
			return fmt.Errorf("eventfd write: %w", err)
		}
	}
}

// Signaled reports, without consuming it, whether the signal is pending.
func (s *Signal) Signaled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	fds := []unix.PollFd{{Fd: int32(s.fd), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, 0)
		if err == unix.EINTR {
			continue
		}
		return err == nil && n == 1 && fds[0].Revents&unix.POLLIN != 0
	}
}

// Close releases the descriptor. Only the creator closes a Signal, after
// the reactor using it has returned.
func (s *Signal) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return unix.Close(s.fd)
}

// Drain consumes the pending counter of a cancellation descriptor so a
// level-triggered multiplexer stops reporting it. An empty counter is not
// an error.
func Drain(fd int) error {
	var buf [8]byte
	for {
		_, err := unix.Read(fd, buf[:])
		switch err {
		case nil, unix.EAGAIN:
			return nil
		case unix.EINTR:
			continue
		default:
			return fmt.Errorf("eventfd read: %w", err)
		}
	}
}
