// File: adapters/tracing.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package adapters

import (
	"context"
	"net/netip"

	"github.com/momentics/puki/api"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultTracerName = "puki"

// Tracing opens one span per connection, from OnConnect to OnClose, and
// records each data delivery as a span event. A nil provider uses the
// global one.
//
// Span state is kept per ConnID without locking: like every handler, it
// is driven from a single goroutine.
func Tracing(tp trace.TracerProvider) Middleware {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	tracer := tp.Tracer(defaultTracerName)
	return func(next api.Handler) api.Handler {
		return &tracingHandler{next: next, tracer: tracer, spans: make(map[api.ConnID]*connSpan)}
	}
}

type connSpan struct {
	span  trace.Span
	bytes int64
	reads int64
}

type tracingHandler struct {
	next   api.Handler
	tracer trace.Tracer
	spans  map[api.ConnID]*connSpan
}

func (h *tracingHandler) OnConnect(id api.ConnID, peer netip.AddrPort) {
	_, span := h.tracer.Start(context.Background(), "puki.connection",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.Int("puki.fd", int(id)),
			attribute.String("net.peer.ip", peer.Addr().String()),
			attribute.Int("net.peer.port", int(peer.Port())),
		),
	)
	h.spans[id] = &connSpan{span: span}
	h.next.OnConnect(id, peer)
}

func (h *tracingHandler) OnData(id api.ConnID, data []byte) {
	if cs, ok := h.spans[id]; ok {
		cs.bytes += int64(len(data))
		cs.reads++
		cs.span.AddEvent("data", trace.WithAttributes(attribute.Int("puki.bytes", len(data))))
	}
	h.next.OnData(id, data)
}

func (h *tracingHandler) OnClose(id api.ConnID) {
	h.next.OnClose(id)
	cs, ok := h.spans[id]
	if !ok {
		return
	}
	delete(h.spans, id)
	cs.span.SetAttributes(
		attribute.Int64("puki.bytes_total", cs.bytes),
		attribute.Int64("puki.reads", cs.reads),
	)
	cs.span.SetStatus(codes.Ok, "")
	cs.span.End()
}

func (h *tracingHandler) OnAcceptError(err error) {
	forwardAcceptError(h.next, err)
}

// openSpans reports connections with a live span.
func (h *tracingHandler) openSpans() int {
	return len(h.spans)
}
