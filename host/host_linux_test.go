//go:build linux

package host_test

import (
	"context"
	"errors"
	"io"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/momentics/puki/api"
	"github.com/momentics/puki/fake"
	"github.com/momentics/puki/host"
	"github.com/momentics/puki/server"
)

const waitTimeout = 5 * time.Second

// listening returns an option reporting the bound loopback address.
func listening() (server.ServerOption, chan netip.AddrPort) {
	ch := make(chan netip.AddrPort, 1)
	return server.WithListenerAddrFunc(func(a netip.AddrPort) {
		ch <- netip.AddrPortFrom(netip.MustParseAddr("127.0.0.1"), a.Port())
	}), ch
}

func waitAddr(t *testing.T, ch chan netip.AddrPort) netip.AddrPort {
	t.Helper()
	select {
	case a := <-ch:
		return a
	case <-time.After(waitTimeout):
		t.Fatal("reactor did not start listening")
		return netip.AddrPort{}
	}
}

func TestControllerStartStop(t *testing.T) {
	h := fake.NewHandler()
	opt, addrs := listening()
	c := host.New(0, h, opt)
	if err := c.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	addr := waitAddr(t, addrs)

	conn, err := net.Dial("tcp4", addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if _, err := io.WriteString(conn, "hello"); err != nil {
		t.Fatal(err)
	}
	if !h.WaitFor(waitTimeout, func(calls []fake.Call) bool { return len(calls) >= 2 }) {
		t.Fatalf("calls = %v, want connect and data", h.Calls())
	}

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	select {
	case <-c.Done():
	default:
		t.Fatal("Done() not closed after Stop")
	}
	if err := c.Err(); err != nil {
		t.Fatalf("Err() = %v, want nil", err)
	}
	calls := h.Calls()
	if last := calls[len(calls)-1]; last.Kind != api.CloseEvent {
		t.Fatalf("last call = %v, want shutdown close", last)
	}

	// Idempotent.
	if err := c.Stop(); err != nil {
		t.Fatalf("second Stop() error: %v", err)
	}
}

func TestControllerStartTwice(t *testing.T) {
	opt, addrs := listening()
	c := host.New(0, nil, opt)
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	defer c.Stop()
	waitAddr(t, addrs)
	if err := c.Start(); !errors.Is(err, api.ErrAlreadyStarted) {
		t.Fatalf("second Start() = %v, want ErrAlreadyStarted", err)
	}
}

func TestControllerStopBeforeStart(t *testing.T) {
	c := host.New(0, nil)
	if err := c.Stop(); !errors.Is(err, api.ErrNotStarted) {
		t.Fatalf("Stop() = %v, want ErrNotStarted", err)
	}
	if err := c.Err(); err != nil {
		t.Fatalf("Err() before start = %v", err)
	}
}

func TestControllerReactorExitedEarly(t *testing.T) {
	// Occupy a port so the reactor fails to bind.
	ln, err := net.Listen("tcp4", "0.0.0.0:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	port := uint16(ln.Addr().(*net.TCPAddr).Port)

	h := fake.NewHandler()
	c := host.New(port, h)
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	select {
	case <-c.Done():
	case <-time.After(waitTimeout):
		t.Fatal("reactor did not exit on bind failure")
	}
	if got := api.StatusOf(c.Err()); got != api.BindFailed {
		t.Fatalf("status = %v, want BindFailed", got)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() after early exit = %v", err)
	}
	if n := len(h.Calls()); n != 0 {
		t.Fatalf("handler saw %d calls, want 0", n)
	}
}

func TestControllerRunUntilContextDone(t *testing.T) {
	opt, addrs := listening()
	c := host.New(0, nil, opt)
	ctx, cancel := context.WithCancel(context.Background())
	res := make(chan error, 1)
	go func() { res <- c.Run(ctx) }()

	waitAddr(t, addrs)
	cancel()
	select {
	case err := <-res:
		if err != nil {
			t.Fatalf("Run() = %v, want nil", err)
		}
	case <-time.After(waitTimeout):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestControllerShutdown(t *testing.T) {
	opt, addrs := listening()
	c := host.New(0, nil, opt)
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	waitAddr(t, addrs)
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	if err := c.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() = %v", err)
	}
}
