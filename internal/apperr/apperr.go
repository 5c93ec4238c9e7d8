// Package apperr defines the error kinds shared across the refresh pipeline
// and the camera sessions.
package apperr

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrSourceUnavailable          = errors.New("source unavailable")
	ErrMalformedRecord            = errors.New("malformed record")
	ErrStreamDegraded             = errors.New("stream degraded")
	ErrStreamOffline              = errors.New("stream offline")
	ErrClassificationInputInvalid = errors.New("classification input invalid")
)

// Error wraps an operation, its kind, a short message and the underlying cause.
type Error struct {
	Op   string
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Kind != nil {
		msg += ": " + e.Kind.Error()
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind of e.
func (e *Error) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

// New constructs an *Error of the given kind.
func New(op string, kind error, msg string, err error) error {
	return &Error{Op: op, Kind: kind, Msg: msg, Err: err}
}

// Unavailable marks err as a SourceUnavailable failure of op.
func Unavailable(op string, err error) error {
	return &Error{Op: op, Kind: ErrSourceUnavailable, Err: err}
}

// Malformed reports a record that could not be parsed.
func Malformed(op, format string, args ...any) error {
	return &Error{Op: op, Kind: ErrMalformedRecord, Msg: fmt.Sprintf(format, args...)}
}
