// Package errors provides structured error types for zaur.
//
// Errors carry a machine-readable code alongside the human-readable message
// so the CLI can decide how to react (fall back to another backend on
// NOT_FOUND, print remediation text on DOWNLOAD_FAILED) without string
// matching.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "query too short: %q", q)
//	if errors.Is(err, errors.ErrCodeNotFound) {
//	    // try the next backend
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different failure categories.
const (
	// Input validation errors
	ErrCodeInvalidInput Code = "INVALID_INPUT"

	// The remote query API reported a logical error.
	ErrCodeRemote Code = "REMOTE_ERROR"

	// A specific-name lookup returned zero results.
	ErrCodeNotFound Code = "NOT_FOUND"

	// Terminal network, extraction, or permission problem during acquisition.
	ErrCodeDownloadFailed Code = "DOWNLOAD_FAILED"

	// The external build tool failed.
	ErrCodeBuildFailed Code = "BUILD_FAILED"

	// Configuration could not be loaded or persisted.
	ErrCodeConfig Code = "CONFIG_ERROR"

	// The dependency graph re-entered a package still being visited.
	ErrCodeDependencyCycle Code = "DEPENDENCY_CYCLE"

	// An interactive operation was interrupted.
	ErrCodeCancelled Code = "CANCELLED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err carries the given error code anywhere in its chain.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
