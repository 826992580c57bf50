package adapters_test

import (
	"testing"

	"github.com/momentics/puki/adapters"
	"github.com/momentics/puki/fake"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func histogramCounts(t *testing.T, reg *prometheus.Registry, name string) map[string]uint64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	out := make(map[string]uint64)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			out[labelValue(m, "event")] = m.GetHistogram().GetSampleCount()
		}
	}
	return out
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestMetricsObservesEachEvent(t *testing.T) {
	reg := prometheus.NewRegistry()
	next := fake.NewHandler()
	h := adapters.Metrics(reg, "")(next)

	drive(h)
	h.OnData(3, []byte("more"))

	got := histogramCounts(t, reg, "puki_handler_duration_seconds")
	want := map[string]uint64{"connect": 1, "data": 2, "close": 1}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("duration samples for %q = %d, want %d", k, got[k], v)
		}
	}
	chunks := histogramCounts(t, reg, "puki_handler_data_chunk_bytes")
	if chunks[""] != 2 {
		t.Errorf("chunk samples = %d, want 2", chunks[""])
	}
	if len(next.Calls()) != 4 {
		t.Fatalf("wrapped handler got %d calls, want 4", len(next.Calls()))
	}
}
