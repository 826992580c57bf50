// File: api/debug.go
// Package api
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Live introspection contract for the admin endpoint.

package api

// Debug exposes named state probes.
type Debug interface {
	// DumpState evaluates every registered probe.
	DumpState() map[string]any

	// RegisterProbe adds or replaces a probe.
	RegisterProbe(name string, fn func() any)
}
