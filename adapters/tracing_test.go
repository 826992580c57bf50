package adapters

import (
	"net/netip"
	"testing"

	"github.com/momentics/puki/api"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestTracingSpanPerConnection(t *testing.T) {
	var closed []api.ConnID
	next := api.HandlerFuncs{Close: func(id api.ConnID) { closed = append(closed, id) }}
	h := Tracing(noop.NewTracerProvider())(next).(*tracingHandler)

	p := netip.MustParseAddrPort("192.0.2.1:5000")
	h.OnConnect(4, p)
	h.OnConnect(5, p)
	h.OnData(4, []byte("abc"))
	if n := h.openSpans(); n != 2 {
		t.Fatalf("openSpans() = %d, want 2", n)
	}
	if cs := h.spans[4]; cs.bytes != 3 || cs.reads != 1 {
		t.Fatalf("span state = %+v, want 3 bytes / 1 read", cs)
	}

	h.OnClose(4)
	h.OnClose(5)
	if n := h.openSpans(); n != 0 {
		t.Fatalf("openSpans() = %d after close, want 0", n)
	}
	if len(closed) != 2 {
		t.Fatalf("wrapped OnClose called %d times, want 2", len(closed))
	}

	// Unknown ids pass through untouched.
	h.OnData(9, []byte("x"))
	h.OnClose(9)
}

func TestTracingDefaultsToGlobalProvider(t *testing.T) {
	h := Tracing(nil)(api.HandlerFuncs{})
	h.OnConnect(1, netip.MustParseAddrPort("127.0.0.1:1"))
	h.OnClose(1)
}
