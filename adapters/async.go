// File: adapters/async.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Hand-off from the reactor goroutine to a worker goroutine.

package adapters

import (
	"net/netip"
	"sync"

	"github.com/eapache/queue"
	"github.com/momentics/puki/api"
	"github.com/momentics/puki/pool"
)

// Async queues lifecycle events and replays them, in order, on its own
// worker goroutine, so slow handlers do not stall the reactor. Data is
// copied out of the reactor's buffer on enqueue. The queue is unbounded.
type Async struct {
	next  api.Handler
	bytes *pool.BytePool

	mu      sync.Mutex
	cond    *sync.Cond
	q       *queue.Queue
	closed  bool
	dropped uint64
	done    chan struct{}
}

var (
	_ api.Handler            = (*Async)(nil)
	_ api.AcceptErrorHandler = (*Async)(nil)
)

// NewAsync starts the worker. Call Close to drain and stop it.
func NewAsync(next api.Handler) *Async {
	a := &Async{
		next:  next,
		bytes: pool.NewBytePool(),
		q:     queue.New(),
		done:  make(chan struct{}),
	}
	a.cond = sync.NewCond(&a.mu)
	go a.worker()
	return a
}

func (a *Async) enqueue(ev api.LifecycleEvent) {
	a.mu.Lock()
	if a.closed {
		a.dropped++
		a.mu.Unlock()
		if ev.Data != nil {
			a.bytes.Release(ev.Data)
		}
		return
	}
	a.q.Add(ev)
	a.mu.Unlock()
	a.cond.Signal()
}

func (a *Async) OnConnect(id api.ConnID, peer netip.AddrPort) {
	a.enqueue(api.LifecycleEvent{Kind: api.ConnectEvent, ID: id, Peer: peer})
}

func (a *Async) OnData(id api.ConnID, data []byte) {
	a.enqueue(api.LifecycleEvent{Kind: api.DataEvent, ID: id, Data: a.bytes.Clone(data)})
}

func (a *Async) OnClose(id api.ConnID) {
	a.enqueue(api.LifecycleEvent{Kind: api.CloseEvent, ID: id})
}

// OnAcceptError is forwarded synchronously; it carries no buffer.
func (a *Async) OnAcceptError(err error) {
	forwardAcceptError(a.next, err)
}

func (a *Async) worker() {
	defer close(a.done)
	for {
		a.mu.Lock()
		for a.q.Length() == 0 && !a.closed {
			a.cond.Wait()
		}
		if a.q.Length() == 0 {
			a.mu.Unlock()
			return
		}
		ev := a.q.Remove().(api.LifecycleEvent)
		a.mu.Unlock()

		ev.Dispatch(a.next)
		if ev.Data != nil {
			a.bytes.Release(ev.Data)
		}
	}
}

// Pending reports queued, not yet dispatched events.
func (a *Async) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.q.Length()
}

// Dropped reports events refused after Close.
func (a *Async) Dropped() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dropped
}

// Close stops accepting events, dispatches what is queued and waits for
// the worker. Idempotent.
func (a *Async) Close() error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.cond.Broadcast()
	<-a.done
	return nil
}
