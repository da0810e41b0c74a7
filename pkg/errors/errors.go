// Package errors carries machine-readable error codes across the module.
//
// Scheduler failures surface through layers with different needs: the view
// builder wants typed causes it can test, the HTTP API wants a stable code
// and a safe message for clients, and the CLI wants the message alone.
// [Error] serves all three: a Code for dispatch, a Message for people, and
// an optional Cause preserving the underlying chain.
//
// Construction sites pick the most specific code available:
//
//	if !g.IsResolved() {
//	    return errors.New(errors.ErrCodeInvalidGraph, "graph %q is not resolved", g.Name())
//	}
//
// Consumers dispatch on codes instead of matching message strings:
//
//	if errors.Is(err, errors.ErrCodeGraphCycle) {
//	    // reject the document
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code. Codes are part of the API
// contract: handlers map them to HTTP statuses and clients dispatch on
// them, so a published value never changes meaning.
type Code string

const (
	// Rejected input: malformed documents, unknown kinds or formats,
	// bad filters, unusable paths.
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidGraph  Code = "INVALID_GRAPH"
	ErrCodeInvalidFilter Code = "INVALID_FILTER"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidOrder  Code = "INVALID_ORDER"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Graphs that cannot be scheduled: construction contract violations,
	// cycles, and edges referring to values nothing produces.
	ErrCodeInvariantViolation Code = "INVARIANT_VIOLATION"
	ErrCodeGraphCycle         Code = "GRAPH_CYCLE"
	ErrCodeUnresolvedValue    Code = "UNRESOLVED_VALUE"

	// Missing resources.
	ErrCodeNotFound      Code = "NOT_FOUND"
	ErrCodeGraphNotFound Code = "GRAPH_NOT_FOUND"
	ErrCodeNodeNotFound  Code = "NODE_NOT_FOUND"

	// Everything else.
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error pairs a code with a human-readable message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error renders as "CODE: message" with the cause chained on when present.
func (e *Error) Error() string {
	s := string(e.Code) + ": " + e.Message
	if e.Cause != nil {
		s += ": " + e.Cause.Error()
	}
	return s
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error that records cause as the underlying failure.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	e := New(code, format, args...)
	e.Cause = cause
	return e
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// GetCode returns the code carried by err, or the empty string for errors
// that never passed through this package.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns the message without the code prefix for structured
// errors, and the plain error string for everything else. The CLI and the
// API response writer print this form.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
