// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus-backed reactor counters.

package control

import (
	"sync/atomic"

	"github.com/momentics/puki/api"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics implements api.Observer on top of a Prometheus registry.
type Metrics struct {
	accepted     prometheus.Counter
	closed       *prometheus.CounterVec
	acceptErrors *prometheus.CounterVec
	bytesRead    prometheus.Counter
	reads        prometheus.Counter
	bytesEchoed  prometheus.Counter
	open         prometheus.Gauge

	// openCount mirrors the gauge for debug probes.
	openCount atomic.Int64
}

var _ api.Observer = (*Metrics)(nil)

// NewMetrics registers the reactor metrics with reg under namespace
// (default "puki").
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "puki"
	}
	factory := promauto.With(reg)
	return &Metrics{
		accepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_accepted_total",
			Help:      "Total number of accepted TCP connections",
		}),
		closed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_closed_total",
			Help:      "Total number of closed connections by reason",
		}, []string{"reason"}),
		acceptErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accept_errors_total",
			Help:      "Recoverable accept failures by errno",
		}, []string{"errno"}),
		bytesRead: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_received_total",
			Help:      "Total bytes read from clients",
		}),
		reads: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reads_total",
			Help:      "Total non-empty reads, one per data delivery",
		}),
		bytesEchoed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_echoed_total",
			Help:      "Total bytes written back in echo mode",
		}),
		open: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_open",
			Help:      "Connections currently in the connection table",
		}),
	}
}

func (m *Metrics) ConnectionOpened() {
	m.accepted.Inc()
	m.open.Inc()
	m.openCount.Add(1)
}

func (m *Metrics) ConnectionClosed(reason api.CloseReason) {
	m.closed.WithLabelValues(string(reason)).Inc()
	m.open.Dec()
	m.openCount.Add(-1)
}

func (m *Metrics) AcceptFailed(err error) {
	m.acceptErrors.WithLabelValues(errnoLabel(err)).Inc()
}

func (m *Metrics) BytesRead(n int) {
	m.reads.Inc()
	m.bytesRead.Add(float64(n))
}

func (m *Metrics) BytesEchoed(n int) {
	m.bytesEchoed.Add(float64(n))
}

// OpenConnections reports the current table size as last observed.
func (m *Metrics) OpenConnections() int64 {
	return m.openCount.Load()
}
