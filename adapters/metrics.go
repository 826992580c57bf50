// File: adapters/metrics.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package adapters

import (
	"net/netip"
	"time"

	"github.com/momentics/puki/api"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// handlerMetrics measures time spent inside handlers, which is time the
// reactor is not servicing other connections.
type handlerMetrics struct {
	duration  *prometheus.HistogramVec
	chunkSize prometheus.Histogram
}

func newHandlerMetrics(reg prometheus.Registerer, namespace string) *handlerMetrics {
	factory := promauto.With(reg)
	return &handlerMetrics{
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "handler",
			Name:      "duration_seconds",
			Help:      "Time spent in lifecycle handlers on the reactor goroutine",
			Buckets:   []float64{1e-6, 1e-5, 1e-4, 1e-3, 1e-2, 0.1, 1},
		}, []string{"event"}),
		chunkSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "handler",
			Name:      "data_chunk_bytes",
			Help:      "Size of each data delivery",
			Buckets:   prometheus.ExponentialBuckets(16, 4, 8),
		}),
	}
}

// Metrics records handler latency per event kind and data chunk sizes
// into reg. Namespace defaults to "puki".
func Metrics(reg prometheus.Registerer, namespace string) Middleware {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "puki"
	}
	m := newHandlerMetrics(reg, namespace)
	return func(next api.Handler) api.Handler {
		return &metricsHandler{next: next, m: m}
	}
}

type metricsHandler struct {
	next api.Handler
	m    *handlerMetrics
}

func (h *metricsHandler) observe(event string, start time.Time) {
	h.m.duration.WithLabelValues(event).Observe(time.Since(start).Seconds())
}

func (h *metricsHandler) OnConnect(id api.ConnID, peer netip.AddrPort) {
	defer h.observe("connect", time.Now())
	h.next.OnConnect(id, peer)
}

func (h *metricsHandler) OnData(id api.ConnID, data []byte) {
	h.m.chunkSize.Observe(float64(len(data)))
	defer h.observe("data", time.Now())
	h.next.OnData(id, data)
}

func (h *metricsHandler) OnClose(id api.ConnID) {
	defer h.observe("close", time.Now())
	h.next.OnClose(id)
}

func (h *metricsHandler) OnAcceptError(err error) {
	forwardAcceptError(h.next, err)
}
