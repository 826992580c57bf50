// File: fake/multiplexer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"sync"

	"github.com/momentics/puki/api"
)

// Multiplexer wraps a real api.Multiplexer and injects failures.
type Multiplexer struct {
	api.Multiplexer

	mu sync.Mutex
	// failWait, once set, is returned by the next Wait.
	failWait error
	// failAdd maps a descriptor to the error its Add returns.
	failAdd map[int]error
	// failNextAdd, once set, is returned by the next Add of any descriptor.
	failNextAdd error
	waits       int
	closed      bool
}

// NewMultiplexer wraps inner.
func NewMultiplexer(inner api.Multiplexer) *Multiplexer {
	return &Multiplexer{Multiplexer: inner, failAdd: make(map[int]error)}
}

// FailNextWait makes the next Wait fail with err.
func (m *Multiplexer) FailNextWait(err error) {
	m.mu.Lock()
	m.failWait = err
	m.mu.Unlock()
}

// FailAdd makes Add(fd, ...) fail with err.
func (m *Multiplexer) FailAdd(fd int, err error) {
	m.mu.Lock()
	m.failAdd[fd] = err
	m.mu.Unlock()
}

// FailNextAdd makes the next Add fail with err, whatever its descriptor.
func (m *Multiplexer) FailNextAdd(err error) {
	m.mu.Lock()
	m.failNextAdd = err
	m.mu.Unlock()
}

func (m *Multiplexer) Add(fd int, interest api.Interest) error {
	m.mu.Lock()
	err := m.failAdd[fd]
	if m.failNextAdd != nil {
		err, m.failNextAdd = m.failNextAdd, nil
	}
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.Multiplexer.Add(fd, interest)
}

func (m *Multiplexer) Wait(events []api.Event) (int, error) {
	m.mu.Lock()
	m.waits++
	err := m.failWait
	m.failWait = nil
	m.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return m.Multiplexer.Wait(events)
}

func (m *Multiplexer) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return m.Multiplexer.Close()
}

// Waits reports how many times Wait was entered.
func (m *Multiplexer) Waits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waits
}

// Closed reports whether Close was called.
func (m *Multiplexer) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
