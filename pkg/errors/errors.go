package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies a failure for exit status mapping and reporting.
type ErrorCode string

const (
	// ErrCodeConfiguration indicates an invalid entry point or include list.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION"

	// ErrCodeBackend indicates the packaging backend failed.
	ErrCodeBackend ErrorCode = "BACKEND"

	// ErrCodeEnvironment indicates the host platform is not supported.
	ErrCodeEnvironment ErrorCode = "ENVIRONMENT"

	// ErrCodeInternal is used for failures outside the taxonomy above.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// Exit codes returned by the CLI.
const (
	ExitOK            = 0
	ExitGeneral       = 1
	ExitCanceled      = 2
	ExitConfiguration = 3
	ExitBackend       = 4
	ExitEnvironment   = 5
)

// StructuredError carries an error code, a human readable message and
// an optional underlying cause.
type StructuredError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// Is matches another StructuredError with the same code, so sentinel
// comparisons like errors.Is(err, &StructuredError{Code: ErrCodeBackend}) work.
func (e *StructuredError) Is(target error) bool {
	t, ok := target.(*StructuredError)
	if !ok {
		return false
	}
	return t.Message == "" && t.Code == e.Code
}

// New creates a StructuredError without a cause.
func New(code ErrorCode, message string) *StructuredError {
	return &StructuredError{Code: code, Message: message}
}

// Wrap creates a StructuredError around cause.
func Wrap(code ErrorCode, message string, cause error) *StructuredError {
	return &StructuredError{Code: code, Message: message, Cause: cause}
}

// Configuration returns a CONFIGURATION error with a formatted message.
func Configuration(format string, args ...any) *StructuredError {
	return New(ErrCodeConfiguration, fmt.Sprintf(format, args...))
}

// Environment returns an ENVIRONMENT error with a formatted message.
func Environment(format string, args ...any) *StructuredError {
	return New(ErrCodeEnvironment, fmt.Sprintf(format, args...))
}

// Backend wraps cause as a BACKEND error.
func Backend(message string, cause error) *StructuredError {
	return Wrap(ErrCodeBackend, message, cause)
}

// CodeOf returns the code of the first StructuredError in err's chain,
// or ErrCodeInternal when there is none.
func CodeOf(err error) ErrorCode {
	var se *StructuredError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ErrCodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return ExitCanceled
	}
	switch CodeOf(err) {
	case ErrCodeConfiguration:
		return ExitConfiguration
	case ErrCodeBackend:
		return ExitBackend
	case ErrCodeEnvironment:
		return ExitEnvironment
	default:
		return ExitGeneral
	}
}
