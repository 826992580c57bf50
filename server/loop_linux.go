//go:build linux
// +build linux

// File: server/loop_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Wait/dispatch loop of the connection reactor.

package server

import (
	"runtime"
	"slices"

	"github.com/momentics/puki/affinity"
	"github.com/momentics/puki/api"
	"github.com/momentics/puki/cancel"
	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

// loop is the per-run state; only the reactor goroutine touches it.
type loop struct {
	s      *Server
	mx     api.Multiplexer
	lfd    int
	conns  *connTable
	buf    []byte
	events []api.Event

	// acceptFailures counts failed accepts since the last one that
	// succeeded or drained the backlog. Only the first is logged at WARN;
	// descriptor exhaustion keeps the listener readable and would flood
	// the log otherwise.
	acceptFailures int
}

func (s *Server) run() error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if s.cpu >= 0 {
		restore, err := affinity.Pin(s.cpu)
		if err != nil {
			s.log.Warn("cpu pinning failed", "cpu", s.cpu, "error", err)
		} else {
			defer restore()
		}
	}

	lfd, bound, err := listen(s.bindAddr, s.port)
	if err != nil {
		s.log.Error("listener setup failed", "port", s.port, "error", err)
		return api.WrapError(api.ErrCodeBindFailed, "listen", err).WithContext("port", s.port)
	}

	mx, err := s.newMultiplexer()
	if err != nil {
		unix.Close(lfd)
		return api.WrapError(api.ErrCodeMultiplexerFatal, "multiplexer create", err)
	}
	if err := mx.Add(lfd, api.Readable); err != nil {
		mx.Close()
		unix.Close(lfd)
		return api.WrapError(api.ErrCodeMultiplexerFatal, "register listener", err)
	}
	if err := mx.Add(s.cancelFd, api.Readable); err != nil {
		mx.Close()
		unix.Close(lfd)
		return api.WrapError(api.ErrCodeCancellationUnavailable, "register cancellation descriptor", err).
			WithContext("fd", s.cancelFd)
	}

	s.log.Info("reactor listening", "addr", bound.String())
	if s.listenerAddrFunc != nil {
		s.listenerAddrFunc(bound)
	}

	l := &loop{
		s:      s,
		mx:     mx,
		lfd:    lfd,
		conns:  newConnTable(),
		buf:    make([]byte, s.readBufferSize),
		events: make([]api.Event, s.maxEvents),
	}
	return l.run()
}

func (l *loop) run() error {
	defer func() {
		// A panicking handler must not leak descriptors.
		if r := recover(); r != nil {
			l.release()
			panic(r)
		}
	}()

	for {
		n, werr := l.mx.Wait(l.events)
		if werr != nil {
			l.s.log.Error("multiplexer wait failed", "error", werr)
			l.shutdown()
			return api.WrapError(api.ErrCodeMultiplexerFatal, "wait", werr)
		}
		batch := l.events[:n]
		slices.SortFunc(batch, func(a, b api.Event) int { return a.Fd - b.Fd })

		// Cancellation wins over anything else in the batch.
		for _, ev := range batch {
			if ev.Fd == l.s.cancelFd {
				if derr := cancel.Drain(l.s.cancelFd); derr != nil {
					l.s.log.Debug("cancellation drain failed", "error", derr)
				}
				l.s.log.Info("cancellation observed, stopping", "open", l.conns.len())
				l.shutdown()
				return nil
			}
		}

		for _, ev := range batch {
			if ev.Fd == l.lfd {
				l.acceptAll()
				continue
			}
			l.serve(ev)
		}
	}
}

// acceptAll drains the listen backlog.
func (l *loop) acceptAll() {
	for {
		nfd, sa, err := unix.Accept4(l.lfd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err != nil {
			switch classifyAcceptErr(err) {
			case acceptDrained:
				l.acceptRecovered()
				return
			case acceptRetry:
				continue
			case acceptSkip:
				l.acceptFailed(err)
				continue
			default:
				l.acceptFailed(err)
				return
			}
		}

		c := &conn{fd: nfd, peer: sockaddrToAddrPort(sa), interest: api.Readable | api.PeerHangup}
		if err := l.mx.Add(nfd, c.interest); err != nil {
			l.s.log.Warn("register accepted connection failed", "fd", nfd, "error", err)
			unix.Close(nfd)
			l.acceptFailed(err)
			continue
		}
		l.acceptRecovered()
		l.conns.insert(c)
		l.s.observer.ConnectionOpened()
		l.s.log.Debug("connection accepted", "fd", nfd, "peer", c.peer.String())
		l.s.handler.OnConnect(c.id(), c.peer)
	}
}

func (l *loop) acceptFailed(err error) {
	aerr := api.WrapError(api.ErrCodeAcceptTransient, "accept", err)
	if l.acceptFailures == 0 {
		l.s.log.Warn("accept failed", "error", err)
	} else {
		l.s.log.Debug("accept failed", "error", err, "consecutive", l.acceptFailures+1)
	}
	l.acceptFailures++
	l.s.observer.AcceptFailed(aerr)
	if l.s.acceptErrs != nil {
		l.s.acceptErrs.OnAcceptError(aerr)
	}
}

// acceptRecovered ends a run of accept failures.
func (l *loop) acceptRecovered() {
	if l.acceptFailures == 0 {
		return
	}
	l.s.log.Info("accept recovered", "failures", l.acceptFailures)
	l.acceptFailures = 0
}

// serve handles readiness on a client socket.
func (l *loop) serve(ev api.Event) {
	c := l.conns.get(ev.Fd)
	if c == nil {
		// Closed earlier in this batch.
		return
	}
	if ev.Ready&api.Writable != 0 && !l.flush(c) {
		return
	}
	if ev.Ready&(api.Readable|api.PeerHangup|api.Hangup|api.Failure) != 0 {
		l.drain(c)
	}
}

// drain reads until the socket would block, hits EOF or fails. Bytes
// queued ahead of a hangup are delivered before the close.
func (l *loop) drain(c *conn) {
	for {
		n, err := unix.Read(c.fd, l.buf)
		if err != nil {
			if retryable(err) {
				continue
			}
			if wouldBlock(err) {
				return
			}
			rerr := api.WrapError(api.ErrCodeReadError, "read", err).WithContext("fd", c.fd)
			l.s.log.Debug("read failed", "code", rerr.Code.String(), "error", rerr)
			l.close(c, api.CloseError)
			return
		}
		if n == 0 {
			l.close(c, api.CloseEOF)
			return
		}

		data := l.buf[:n]
		l.s.observer.BytesRead(n)
		l.s.handler.OnData(c.id(), data)
		if l.s.echo && !l.write(c, data) {
			return
		}
	}
}

// write echoes data, keeping whatever the socket does not accept. It
// returns false if the connection was closed.
func (l *loop) write(c *conn, data []byte) bool {
	if len(c.pending) > 0 {
		c.pending = append(c.pending, data...)
		return true
	}
	n, err := writeAll(c.fd, data)
	if n > 0 {
		l.s.observer.BytesEchoed(n)
	}
	if err != nil {
		l.s.log.Debug("write failed", "fd", c.fd, "error", err)
		l.close(c, api.CloseError)
		return false
	}
	if n < len(data) {
		c.pending = append(c.pending, data[n:]...)
		return l.setInterest(c, c.interest|api.Writable)
	}
	return true
}

// flush retries pending echo bytes on writability.
func (l *loop) flush(c *conn) bool {
	if len(c.pending) == 0 {
		return l.setInterest(c, c.interest&^api.Writable)
	}
	n, err := writeAll(c.fd, c.pending)
	if n > 0 {
		l.s.observer.BytesEchoed(n)
	}
	if err != nil {
		l.s.log.Debug("write failed", "fd", c.fd, "error", err)
		l.close(c, api.CloseError)
		return false
	}
	c.pending = c.pending[:copy(c.pending, c.pending[n:])]
	if len(c.pending) == 0 {
		return l.setInterest(c, c.interest&^api.Writable)
	}
	return true
}

func (l *loop) setInterest(c *conn, in api.Interest) bool {
	if in == c.interest {
		return true
	}
	if err := l.mx.Modify(c.fd, in); err != nil {
		l.s.log.Debug("modify interest failed", "fd", c.fd, "error", err)
		l.close(c, api.CloseError)
		return false
	}
	c.interest = in
	return true
}

// writeAll writes until done or the socket would block. A would-block is
// not an error; the short count tells the caller.
func writeAll(fd int, p []byte) (int, error) {
	written := 0
	for written < len(p) {
		n, err := unix.Write(fd, p[written:])
		if err != nil {
			if retryable(err) {
				continue
			}
			if wouldBlock(err) {
				return written, nil
			}
			return written, err
		}
		written += n
	}
	return written, nil
}

// close deregisters, forgets and closes c, then reports OnClose once.
func (l *loop) close(c *conn, reason api.CloseReason) {
	err := l.detach(c)
	if err != nil {
		l.s.log.Debug("connection teardown", "fd", c.fd, "error", err)
	}
	l.s.observer.ConnectionClosed(reason)
	l.s.log.Debug("connection closed", "fd", c.fd, "reason", string(reason))
	l.s.handler.OnClose(c.id())
}

func (l *loop) detach(c *conn) error {
	l.conns.remove(c.fd)
	return multierr.Append(l.mx.Remove(c.fd), unix.Close(c.fd))
}

// shutdown closes every open connection, reporting OnClose once each in
// ascending fd order, then releases the listener and the multiplexer. The
// cancellation descriptor is left open for its owner.
func (l *loop) shutdown() {
	var errs error
	for _, fd := range l.conns.fds() {
		c := l.conns.get(fd)
		errs = multierr.Append(errs, l.detach(c))
		l.s.observer.ConnectionClosed(api.CloseShutdown)
		l.s.handler.OnClose(c.id())
	}
	errs = multierr.Append(errs, l.releaseCore())
	if errs != nil {
		l.s.log.Debug("shutdown close errors", "count", len(multierr.Errors(errs)), "error", errs)
	}
}

// release drops every descriptor without notifying the handler.
func (l *loop) release() {
	for _, fd := range l.conns.fds() {
		_ = l.detach(l.conns.get(fd))
	}
	_ = l.releaseCore()
}

func (l *loop) releaseCore() error {
	return multierr.Combine(
		l.mx.Remove(l.s.cancelFd),
		l.mx.Remove(l.lfd),
		unix.Close(l.lfd),
		l.mx.Close(),
	)
}
