//go:build !windows && !plan9

package control

import (
	"errors"
	"testing"

	"github.com/momentics/puki/api"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sys/unix"
)

func TestAcceptErrorsLabelledByErrno(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, "")

	m.AcceptFailed(api.WrapError(api.ErrCodeAcceptTransient, "accept", unix.EMFILE))
	m.AcceptFailed(api.WrapError(api.ErrCodeAcceptTransient, "accept", unix.EMFILE))
	m.AcceptFailed(api.WrapError(api.ErrCodeAcceptTransient, "accept", unix.ENOBUFS))
	m.AcceptFailed(api.WrapError(api.ErrCodeAcceptTransient, "accept", errors.New("opaque")))

	for label, want := range map[string]float64{"EMFILE": 2, "ENOBUFS": 1, "unknown": 1} {
		if got := sample(t, reg, "puki_accept_errors_total", "errno", label); got != want {
			t.Errorf("accept_errors_total{errno=%q} = %v, want %v", label, got, want)
		}
	}
}
