// File: api/status.go
// Package api defines the reactor exit status.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// ExitStatus is the terminal outcome of a reactor run.
type ExitStatus int

const (
	// Stopped: the cancellation signal was observed and the reactor shut down cleanly.
	Stopped ExitStatus = iota
	// BindFailed: the listener could not be set up; no handler was invoked.
	BindFailed
	// CancellationUnavailable: the cancellation descriptor could not be registered.
	CancellationUnavailable
	// Fatal: the readiness multiplexer failed.
	Fatal
)

// Code returns the process-level status code: zero only for Stopped.
func (s ExitStatus) Code() int {
	return int(s)
}

func (s ExitStatus) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case BindFailed:
		return "bind_failed"
	case CancellationUnavailable:
		return "cancellation_unavailable"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// StatusOf maps a reactor run error to its ExitStatus.
func StatusOf(err error) ExitStatus {
	switch CodeOf(err) {
	case ErrCodeOK:
		return Stopped
	case ErrCodeBindFailed:
		return BindFailed
	case ErrCodeCancellationUnavailable, ErrCodeResourceExhausted:
		return CancellationUnavailable
	default:
		return Fatal
	}
}
