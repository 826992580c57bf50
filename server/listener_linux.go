//go:build linux
// +build linux

// File: server/listener_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Non-blocking IPv4 listening socket and accept classification.

package server

import (
	"errors"
	"fmt"
	"net/netip"

	"golang.org/x/sys/unix"
)

// listen creates a non-blocking listening socket on addr:port and returns
// it with the address actually bound.
func listen(addr netip.Addr, port uint16) (int, netip.AddrPort, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return -1, netip.AddrPort{}, fmt.Errorf("socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, netip.AddrPort{}, fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: int(port), Addr: addr.As4()}); err != nil {
		unix.Close(fd)
		return -1, netip.AddrPort{}, fmt.Errorf("bind %s: %w", netip.AddrPortFrom(addr, port), err)
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return -1, netip.AddrPort{}, fmt.Errorf("listen: %w", err)
	}
	sa, err := unix.Getsockname(fd)
	if err != nil {
		unix.Close(fd)
		return -1, netip.AddrPort{}, fmt.Errorf("getsockname: %w", err)
	}
	return fd, sockaddrToAddrPort(sa), nil
}

func sockaddrToAddrPort(sa unix.Sockaddr) netip.AddrPort {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(a.Addr), uint16(a.Port))
	case *unix.SockaddrInet6:
		return netip.AddrPortFrom(netip.AddrFrom16(a.Addr).Unmap(), uint16(a.Port))
	default:
		return netip.AddrPort{}
	}
}

// acceptOutcome says what the accept loop does after a failed accept4.
type acceptOutcome int

const (
	acceptDrained acceptOutcome = iota // backlog empty
	acceptRetry                        // retry immediately
	acceptSkip                         // this connection is lost, keep accepting
	acceptBackoff                      // stop until the next readiness cycle
)

func classifyAcceptErr(err error) acceptOutcome {
	switch {
	case errors.Is(err, unix.EAGAIN):
		return acceptDrained
	case errors.Is(err, unix.EINTR):
		return acceptRetry
	case errors.Is(err, unix.ECONNABORTED), errors.Is(err, unix.EPROTO), errors.Is(err, unix.EPERM):
		return acceptSkip
	default:
		// EMFILE, ENFILE, ENOBUFS, ENOMEM and anything unexpected.
		return acceptBackoff
	}
}

// retryable reports read/write errors that are not a reason to drop
// the connection.
func retryable(err error) bool {
	return errors.Is(err, unix.EINTR)
}

func wouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN)
}
