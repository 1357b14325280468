// Package werror models the DOMException-style error taxonomy spec'd
// for the WebCodecs polyfill (§7): TypeError, InvalidState, RangeError,
// NotSupported, Encoding and Abort. Each is a distinct sentinel so
// callers can classify with errors.Is while still getting a useful
// %w-wrapped message, matching the teacher's fmt.Errorf("...: %w", err)
// convention throughout config.go/video.go/helpers.go.
package werror

import (
	"errors"
	"fmt"
)

// Sentinels identifying the error kind. Wrap with fmt.Errorf("...: %w", ErrX)
// or use the constructor helpers below.
var (
	ErrType        = errors.New("typeerror")
	ErrInvalidState = errors.New("invalidstate")
	ErrRange       = errors.New("rangeerror")
	ErrNotSupported = errors.New("notsupported")
	ErrEncoding    = errors.New("encodingerror")
	ErrAbort       = errors.New("aborterror")
)

// TypeErrorf builds a wrapped TypeError.
func TypeErrorf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, ErrType)...)
}

// InvalidStatef builds a wrapped InvalidState error.
func InvalidStatef(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, ErrInvalidState)...)
}

// RangeErrorf builds a wrapped RangeError.
func RangeErrorf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, ErrRange)...)
}

// NotSupportedf builds a wrapped NotSupported error.
func NotSupportedf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, ErrNotSupported)...)
}

// EncodingErrorf builds a wrapped Encoding error (backend failure).
func EncodingErrorf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, ErrEncoding)...)
}

// Abortf builds a wrapped Abort error (produced by reset/close, never
// surfaced to the user's error callback per §7).
func Abortf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, ErrAbort)...)
}

// IsAbort reports whether err is (or wraps) an abort-class error.
func IsAbort(err error) bool { return errors.Is(err, ErrAbort) }
