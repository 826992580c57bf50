// File: host/host.go
// Package host runs a reactor on its own goroutine and stops it from the
// outside through the cancellation signal.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The Controller owns the cancel.Signal; the reactor only borrows its
// descriptor. Stop signals, joins the reactor goroutine, then closes the
// signal, so the descriptor outlives every use the reactor makes of it.

package host

import (
	"context"
	"fmt"
	"sync"

	"github.com/momentics/puki/api"
	"github.com/momentics/puki/cancel"
	"github.com/momentics/puki/server"
)

// Controller starts and stops one reactor run.
type Controller struct {
	port    uint16
	handler api.Handler
	opts    []server.ServerOption

	mu      sync.Mutex
	started bool
	stopped bool
	sig     *cancel.Signal
	done    chan struct{}
	err     error // reactor result, valid after done is closed
}

// Ensure compliance with api.GracefulShutdown.
var _ api.GracefulShutdown = (*Controller)(nil)

// New prepares a controller; nothing is created until Start.
func New(port uint16, h api.Handler, opts ...server.ServerOption) *Controller {
	return &Controller{
		port:    port,
		handler: h,
		opts:    opts,
		done:    make(chan struct{}),
	}
}

// Start creates the cancellation signal and launches the reactor. It
// returns once the reactor goroutine is running; setup failures inside
// the reactor are reported through Err after Done closes.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return fmt.Errorf("host start: %w", api.ErrAlreadyStarted)
	}
	sig, err := cancel.New()
	if err != nil {
		return fmt.Errorf("host start: %w", err)
	}
	c.sig = sig
	c.started = true

	srv := server.New(c.port, sig.Fd(), c.handler, c.opts...)
	go func() {
		defer close(c.done)
		// Server.Run locks its goroutine to the OS thread.
		c.err = srv.Run()
	}()
	return nil
}

// Stop signals the reactor, waits for it to exit and releases the signal.
// It is idempotent and succeeds when the reactor already exited on its own.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return fmt.Errorf("host stop: %w", api.ErrNotStarted)
	}
	if c.stopped {
		return nil
	}
	c.stopped = true

	sigErr := c.sig.Signal()
	<-c.done
	closeErr := c.sig.Close()
	if sigErr != nil {
		// A reactor that already exited makes a failed signal harmless.
		select {
		case <-c.done:
		default:
			return fmt.Errorf("host stop: %w", sigErr)
		}
	}
	if closeErr != nil {
		return fmt.Errorf("host stop: close signal: %w", closeErr)
	}
	return nil
}

// Shutdown stops the reactor, giving up waiting when ctx ends first. The
// reactor keeps its signal and finishes in the background in that case.
func (c *Controller) Shutdown(ctx context.Context) error {
	res := make(chan error, 1)
	go func() { res <- c.Stop() }()
	select {
	case err := <-res:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when the reactor goroutine has returned.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Err returns the reactor's result: nil after a signaled stop, the
// setup or multiplexer failure otherwise. It is nil until Done closes.
func (c *Controller) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Run starts the reactor and blocks until ctx ends or the reactor exits on
// its own, then stops it and returns the reactor's result.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.Start(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-c.done:
	}
	if err := c.Stop(); err != nil {
		return err
	}
	return c.Err()
}
