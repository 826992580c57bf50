// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Named state probes exported through /debug/state.

package control

import (
	"sort"
	"sync"
	"time"

	"github.com/momentics/puki/api"
)

// DebugProbes holds registered probe functions.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

var _ api.Debug = (*DebugProbes)(nil)

// NewDebugProbes creates a probe registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{
		probes: make(map[string]func() any),
	}
}

// RegisterProbe inserts or replaces a named probe.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.probes[name] = fn
}

// Names lists registered probes in sorted order.
func (dp *DebugProbes) Names() []string {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	names := make([]string, 0, len(dp.probes))
	for k := range dp.probes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// DumpState evaluates every probe. Probes run without the registry lock
// held so they may register further probes.
func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.RLock()
	fns := make(map[string]func() any, len(dp.probes))
	for k, fn := range dp.probes {
		fns[k] = fn
	}
	dp.mu.RUnlock()

	out := make(map[string]any, len(fns))
	for k, fn := range fns {
		out[k] = fn()
	}
	return out
}

// RegisterServerProbes exposes the reactor's live counters and uptime.
func RegisterServerProbes(dp api.Debug, m *Metrics, started time.Time) {
	if m != nil {
		dp.RegisterProbe("server.connections_open", func() any {
			return m.OpenConnections()
		})
	}
	dp.RegisterProbe("server.uptime_seconds", func() any {
		return int64(time.Since(started).Seconds())
	})
}
