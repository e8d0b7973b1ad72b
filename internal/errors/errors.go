// Package errors provides the typed error used across xfields. Each error
// carries an ErrorCode so callers can branch on the failure class with
// errors.Is, independent of the message text.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a standard error code
type ErrorCode string

const (
	// Resolution errors
	CodeUnknownConstant ErrorCode = "UNKNOWN_CONSTANT"
	CodeInvalidValue    ErrorCode = "INVALID_VALUE"
	CodeAlreadyResolved ErrorCode = "ALREADY_RESOLVED"

	// Environment errors
	CodeConfigError   ErrorCode = "CONFIG_ERROR"
	CodeDatabaseError ErrorCode = "DATABASE_ERROR"
	CodeNotFound      ErrorCode = "NOT_FOUND"
)

// Error represents an xfields error
type Error struct {
	Message string
	Code    ErrorCode
	Details map[string]any
	Err     error // Wrapped error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so sentinel values such as
// ErrAlreadyResolved compare equal to errors built later with details.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// Wrap wraps an error with additional context
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// New creates a new error
func New(code ErrorCode, message string) *Error {
	return &Error{
		Message: message,
		Code:    code,
	}
}

// Sentinels for errors.Is checks.
var (
	ErrUnknownConstant = New(CodeUnknownConstant, "unknown constant")
	ErrInvalidValue    = New(CodeInvalidValue, "invalid value")
	ErrAlreadyResolved = New(CodeAlreadyResolved, "constant table already resolved")
	ErrNotFound        = New(CodeNotFound, "not found")
)

// NewUnknownConstantError reports a name that is not in the table.
func NewUnknownConstantError(name string) *Error {
	return New(CodeUnknownConstant, fmt.Sprintf("unknown constant %q", name)).
		WithDetails(map[string]any{"name": name})
}

// NewInvalidValueError reports an override value that could not be parsed.
func NewInvalidValueError(name string, value any, err error) *Error {
	return New(CodeInvalidValue, fmt.Sprintf("invalid value for %s", name)).
		WithDetails(map[string]any{"name": name, "value": value}).
		Wrap(err)
}

// NewAlreadyResolvedError reports a definition attempted after resolution.
func NewAlreadyResolvedError(name string) *Error {
	return New(CodeAlreadyResolved, fmt.Sprintf("cannot define %s: constant table already resolved", name)).
		WithDetails(map[string]any{"name": name})
}

// NewConfigError wraps a configuration failure.
func NewConfigError(message string, err error) *Error {
	return New(CodeConfigError, message).Wrap(err)
}

// NewDatabaseError wraps a database failure.
func NewDatabaseError(err error) *Error {
	return New(CodeDatabaseError, "database error").Wrap(err)
}

// NewNotFoundError reports a missing resource.
func NewNotFoundError(resource string) *Error {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
