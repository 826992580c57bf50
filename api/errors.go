// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for puki.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrInvalidArgument   = fmt.Errorf("invalid argument")
	ErrResourceExhausted = fmt.Errorf("resource exhausted")
	ErrNotSupported      = fmt.Errorf("operation not supported")
	ErrAlreadyStarted    = fmt.Errorf("already started")
	ErrNotStarted        = fmt.Errorf("not started")
	ErrSignalClosed      = fmt.Errorf("cancellation signal is closed")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeResourceExhausted
	ErrCodeNotSupported
	ErrCodeInternal
	// ErrCodeBindFailed: the listening socket could not be created, bound or put in listen state.
	ErrCodeBindFailed
	// ErrCodeAcceptTransient: accept failed in a way the loop recovers from.
	ErrCodeAcceptTransient
	// ErrCodeReadError: a client read failed; contained to that connection.
	ErrCodeReadError
	// ErrCodeMultiplexerFatal: the readiness multiplexer failed irrecoverably.
	ErrCodeMultiplexerFatal
	// ErrCodeCancellationUnavailable: the cancellation descriptor could not be created or registered.
	ErrCodeCancellationUnavailable
)

var codeNames = map[ErrorCode]string{
	ErrCodeOK:                      "ok",
	ErrCodeInvalidArgument:         "invalid_argument",
	ErrCodeResourceExhausted:       "resource_exhausted",
	ErrCodeNotSupported:            "not_supported",
	ErrCodeInternal:                "internal",
	ErrCodeBindFailed:              "bind_failed",
	ErrCodeAcceptTransient:         "accept_transient",
	ErrCodeReadError:               "read_error",
	ErrCodeMultiplexerFatal:        "multiplexer_fatal",
	ErrCodeCancellationUnavailable: "cancellation_unavailable",
}

// String returns a stable snake_case name, suitable as a metric label.
func (c ErrorCode) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Error represents a structured error with code, context and an optional cause.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = msg + ": " + e.Cause.Error()
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the cause to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WrapError creates a structured error around cause.
func WrapError(code ErrorCode, message string, cause error) *Error {
	e := NewError(code, message)
	e.Cause = cause
	return e
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// CodeOf extracts the ErrorCode carried by err, ErrCodeOK for nil.
// Foreign errors wrapping ErrInvalidArgument or ErrNotSupported get the
// matching code; anything else is ErrCodeInternal.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var e *Error
	switch {
	case errors.As(err, &e):
		return e.Code
	case errors.Is(err, ErrInvalidArgument):
		return ErrCodeInvalidArgument
	case errors.Is(err, ErrNotSupported):
		return ErrCodeNotSupported
	}
	return ErrCodeInternal
}
