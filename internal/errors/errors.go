// Package errors provides the coded errors returned by catalog discovery.
//
// Usage:
//
//	// In the probe - return typed errors
//	if !isRIFF {
//	    return errors.UnsupportedFormatf("%s: not a RIFF container", path)
//	}
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrResolveFailed) {
//	    // owner unknown, distinct from an empty library
//	}
//
//	// Or switch on the code
//	switch errors.CodeOf(err) {
//	case errors.CodePathNotFound:
//	case errors.CodeCanceled:
//	}
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
	New    = errors.New
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout discovery.
const (
	CodePathNotFound      Code = "PATH_NOT_FOUND"
	CodeMalformedName     Code = "MALFORMED_NAME"
	CodeUnsupportedFormat Code = "UNSUPPORTED_FORMAT"
	CodeIOFailure         Code = "IO_FAILURE"
	CodeResolveFailed     Code = "RESOLVE_FAILED"
	CodeCanceled          Code = "CANCELED"
	CodeValidation        Code = "VALIDATION"
	CodeInternal          Code = "INTERNAL"
)

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

// Sentinel errors for use with errors.Is().
var (
	ErrPathNotFound      = &Error{Code: CodePathNotFound, Message: "path not found"}
	ErrMalformedName     = &Error{Code: CodeMalformedName, Message: "malformed file name"}
	ErrUnsupportedFormat = &Error{Code: CodeUnsupportedFormat, Message: "unsupported audio format"}
	ErrIOFailure         = &Error{Code: CodeIOFailure, Message: "i/o failure"}
	ErrResolveFailed     = &Error{Code: CodeResolveFailed, Message: "owner address could not be resolved"}
	ErrCanceled          = &Error{Code: CodeCanceled, Message: "discovery canceled"}
	ErrValidation        = &Error{Code: CodeValidation, Message: "validation error"}
)

// CodeOf returns the code of the first *Error in err's chain.
// Context errors map to CodeCanceled; anything else is CodeInternal.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CodeCanceled
	}
	return CodeInternal
}

// PathNotFoundf creates a path not found error with formatted message.
func PathNotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodePathNotFound, Message: fmt.Sprintf(format, args...)}
}

// MalformedNamef creates a malformed name error with formatted message.
func MalformedNamef(format string, args ...any) *Error {
	return &Error{Code: CodeMalformedName, Message: fmt.Sprintf(format, args...)}
}

// UnsupportedFormatf creates an unsupported format error with formatted message.
func UnsupportedFormatf(format string, args ...any) *Error {
	return &Error{Code: CodeUnsupportedFormat, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Canceled wraps a context error as a discovery cancellation.
func Canceled(cause error) *Error {
	return &Error{Code: CodeCanceled, Message: "discovery canceled", cause: cause}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
