//go:build linux

package server_test

import (
	"bytes"
	"errors"
	"log/slog"
	"net/netip"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/momentics/puki/api"
	"github.com/momentics/puki/fake"
	"github.com/momentics/puki/reactor"
	"github.com/momentics/puki/server"
	"golang.org/x/sys/unix"
)

// syncBuffer is a log sink shared between the reactor and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// reasons records close reasons reported to the observer.
type reasons struct {
	api.NopObserver
	mu  sync.Mutex
	got []api.CloseReason
}

func (r *reasons) ConnectionClosed(reason api.CloseReason) {
	r.mu.Lock()
	r.got = append(r.got, reason)
	r.mu.Unlock()
}

func (r *reasons) list() []api.CloseReason {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]api.CloseReason(nil), r.got...)
}

func waitAcceptErrors(h *fake.Handler, n int) []error {
	deadline := time.Now().Add(waitTimeout)
	for {
		errs := h.AcceptErrors()
		if len(errs) >= n || time.Now().After(deadline) {
			return errs
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestPeerResetClosesOnce(t *testing.T) {
	h := fake.NewHandler()
	dataSeen := make(chan struct{}, 1)
	h.DataFunc = func(api.ConnID, []byte) {
		select {
		case dataSeen <- struct{}{}:
		default:
		}
	}
	closed := make(chan api.ConnID, 4)
	h.CloseFunc = func(id api.ConnID) { closed <- id }
	obs := &reasons{}
	r := startServer(t, h, server.WithObserver(obs))

	c := dial(t, r.addr)
	if _, err := c.Write([]byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case <-dataSeen:
	case <-time.After(waitTimeout):
		t.Fatalf("data not delivered, calls: %v", h.Calls())
	}
	if err := c.SetLinger(0); err != nil {
		t.Fatalf("SetLinger: %v", err)
	}
	c.Close()

	select {
	case <-closed:
	case <-time.After(waitTimeout):
		t.Fatalf("reset connection not closed, calls: %v", h.Calls())
	}
	if err := r.stop(t); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}

	calls := h.Calls()
	if diff := cmp.Diff([]string{"connect", "data:x", "close"}, trace(calls)); diff != "" {
		t.Fatalf("trace mismatch (-want +got):\n%s", diff)
	}
	if calls[0].ID != calls[2].ID {
		t.Fatalf("close id %d, connect id %d", calls[2].ID, calls[0].ID)
	}
	if diff := cmp.Diff([]api.CloseReason{api.CloseError}, obs.list()); diff != "" {
		t.Fatalf("close reasons mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistrationFailureReportsAcceptError(t *testing.T) {
	var mx *fake.Multiplexer
	factory := func() (api.Multiplexer, error) {
		inner, err := reactor.NewReactor()
		if err != nil {
			return nil, err
		}
		mx = fake.NewMultiplexer(inner)
		return mx, nil
	}
	h := fake.NewHandler()
	var connects sync.Mutex
	connected := 0
	h.ConnectFunc = func(api.ConnID, netip.AddrPort) {
		connects.Lock()
		connected++
		connects.Unlock()
	}
	r := startServer(t, h, server.WithMultiplexerFactory(factory))

	mx.FailNextAdd(unix.ENOMEM)
	rejected := dial(t, r.addr)
	defer rejected.Close()

	errs := waitAcceptErrors(h, 1)
	if len(errs) != 1 {
		t.Fatalf("accept errors = %v, want one", errs)
	}
	if !errors.Is(errs[0], unix.ENOMEM) || api.CodeOf(errs[0]) != api.ErrCodeAcceptTransient {
		t.Fatalf("accept error = %v, want transient ENOMEM", errs[0])
	}
	rejected.SetReadDeadline(time.Now().Add(waitTimeout))
	if _, err := rejected.Read(make([]byte, 1)); err == nil || isTimeout(err) {
		t.Fatalf("read on rejected connection = %v, want EOF or reset", err)
	}

	// The reactor keeps serving.
	c := dial(t, r.addr)
	c.Close()
	if !h.WaitFor(waitTimeout, closedCount(1)) {
		t.Fatalf("follow-up connection not served, calls: %v", h.Calls())
	}
	if err := r.stop(t); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	connects.Lock()
	defer connects.Unlock()
	if connected != 1 {
		t.Fatalf("OnConnect called %d times, want 1 (rejected connection must not be reported)", connected)
	}
	if n := len(h.AcceptErrors()); n != 1 {
		t.Fatalf("accept errors = %d, want 1", n)
	}
}

func isTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}

func TestDescriptorExhaustionRecovers(t *testing.T) {
	var lim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		t.Skipf("getrlimit: %v", err)
	}
	orig := lim
	if lim.Cur > 1024 {
		lim.Cur = 1024
		if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
			t.Skipf("setrlimit: %v", err)
		}
	}
	t.Cleanup(func() { unix.Setrlimit(unix.RLIMIT_NOFILE, &orig) })

	logs := &syncBuffer{}
	log := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelInfo}))
	h := fake.NewHandler()
	r := startServer(t, h, server.WithLogger(log))

	// Warm up the runtime poller so the dial below needs one descriptor.
	warm := dial(t, r.addr)
	warm.Close()
	if !h.WaitFor(waitTimeout, closedCount(1)) {
		t.Fatalf("warm-up connection not closed, calls: %v", h.Calls())
	}

	var spare []int
	release := func() {
		for _, fd := range spare {
			unix.Close(fd)
		}
		spare = nil
	}
	t.Cleanup(release)
	for {
		fd, err := unix.Dup(r.sig.Fd())
		if err != nil {
			if !errors.Is(err, unix.EMFILE) {
				t.Fatalf("dup: %v", err)
			}
			break
		}
		spare = append(spare, fd)
	}
	if len(spare) == 0 {
		t.Skip("descriptor table already full")
	}
	// Leave exactly one slot for the client socket.
	unix.Close(spare[len(spare)-1])
	spare = spare[:len(spare)-1]
	c := dial(t, r.addr)
	defer c.Close()

	errs := waitAcceptErrors(h, 1)
	if len(errs) == 0 {
		release()
		t.Fatal("no accept error while descriptors are exhausted")
	}
	if !errors.Is(errs[0], unix.EMFILE) || api.CodeOf(errs[0]) != api.ErrCodeAcceptTransient {
		release()
		t.Fatalf("accept error = %v, want transient EMFILE", errs[0])
	}
	if h.Count(api.ConnectEvent) != 1 {
		release()
		t.Fatalf("connect reported while descriptors are exhausted: %v", h.Calls())
	}

	release()
	if !h.WaitFor(waitTimeout, func(calls []fake.Call) bool {
		connects := 0
		for _, c := range calls {
			if c.Kind == api.ConnectEvent {
				connects++
			}
		}
		return connects == 2
	}) {
		t.Fatalf("connect not observed after descriptors were freed, calls: %v", h.Calls())
	}
	if err := r.stop(t); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}

	out := logs.String()
	if n := strings.Count(out, `level=WARN msg="accept failed"`); n != 1 {
		t.Fatalf("%d accept WARN lines for one exhaustion episode, want 1", n)
	}
	if !strings.Contains(out, `msg="accept recovered"`) {
		t.Fatalf("recovery not logged:\n%s", out)
	}
}
