// File: api/shutdown.go
// Package api defines unified graceful shutdown contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "context"

// GracefulShutdown is implemented by long-running components that stop
// on request and release their resources.
type GracefulShutdown interface {
	// Shutdown stops the component and waits for it, or for ctx.
	Shutdown(ctx context.Context) error
}
