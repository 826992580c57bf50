// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, controllable behavior for the lifecycle Handler
// and the readiness Multiplexer.

package fake
