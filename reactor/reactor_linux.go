//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7)-based reactor implementation and factory.

package reactor

import (
	"fmt"

	"github.com/momentics/puki/api"
	"golang.org/x/sys/unix"
)

// linuxReactor is a level-triggered epoll multiplexer. It is not safe for
// concurrent use; the owning loop is its only caller.
type linuxReactor struct {
	epfd int
	raw  []unix.EpollEvent
}

// NewReactor constructs a new epoll instance.
func NewReactor() (api.Multiplexer, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	return &linuxReactor{epfd: epfd}, nil
}

// Add registers fd with the epoll interest list.
func (r *linuxReactor) Add(fd int, interest api.Interest) error {
	ev := unix.EpollEvent{Events: toEpoll(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl add fd=%d: %w", fd, err)
	}
	return nil
}

// Modify replaces the interest set of fd.
func (r *linuxReactor) Modify(fd int, interest api.Interest) error {
	ev := unix.EpollEvent{Events: toEpoll(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl mod fd=%d: %w", fd, err)
	}
	return nil
}

// Remove deletes fd from the interest list.
func (r *linuxReactor) Remove(fd int) error {
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll ctl del fd=%d: %w", fd, err)
	}
	return nil
}

// Wait blocks without timeout until events are ready. EINTR yields (0, nil).
func (r *linuxReactor) Wait(events []api.Event) (int, error) {
	if len(events) == 0 {
		return 0, fmt.Errorf("epoll wait: %w", api.ErrInvalidArgument)
	}
	if cap(r.raw) < len(events) {
		r.raw = make([]unix.EpollEvent, len(events))
	}
	raw := r.raw[:len(events)]

	n, err := unix.EpollWait(r.epfd, raw, -1)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}
	for i := 0; i < n; i++ {
		events[i] = api.Event{Fd: int(raw[i].Fd), Ready: fromEpoll(raw[i].Events)}
	}
	return n, nil
}

// Close closes the epoll instance.
func (r *linuxReactor) Close() error {
	return unix.Close(r.epfd)
}

func toEpoll(in api.Interest) uint32 {
	var ev uint32
	if in&api.Readable != 0 {
		ev |= unix.EPOLLIN
	}
	if in&api.Writable != 0 {
		ev |= unix.EPOLLOUT
	}
	if in&api.PeerHangup != 0 {
		ev |= unix.EPOLLRDHUP
	}
	return ev
}

func fromEpoll(ev uint32) api.Interest {
	var in api.Interest
	if ev&unix.EPOLLIN != 0 {
		in |= api.Readable
	}
	if ev&unix.EPOLLOUT != 0 {
		in |= api.Writable
	}
	if ev&unix.EPOLLRDHUP != 0 {
		in |= api.PeerHangup
	}
	if ev&unix.EPOLLHUP != 0 {
		in |= api.Hangup
	}
	if ev&unix.EPOLLERR != 0 {
		in |= api.Failure
	}
	return in
}
