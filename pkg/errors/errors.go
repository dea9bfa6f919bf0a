// Package errors provides structured error types for visstudy.
//
// Every failure that crosses a package boundary carries a machine-readable
// [Code] so that the CLI can print a clean message and the HTTP server can map
// it to a status code without string matching.
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: request, plan, or path validation failures
//   - ALREADY_EXISTS / DUPLICATE_SLUG: write-once and naming conflicts
//   - FILE_NOT_FOUND / IO_ERROR: filesystem failures
//   - INTERNAL_*: unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidFormat, "unknown data format %q", s)
//	if errors.Is(err, errors.ErrCodeInvalidFormat) {
//	    // Handle configuration error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeIO, origErr, "write %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidRequest  Code = "INVALID_REQUEST"
	ErrCodeInvalidFormat   Code = "INVALID_FORMAT"
	ErrCodeInvalidRenderer Code = "INVALID_RENDERER"
	ErrCodeInvalidName     Code = "INVALID_NAME"
	ErrCodeInvalidPath     Code = "INVALID_PATH"
	ErrCodeInvalidPlan     Code = "INVALID_PLAN"

	// Naming and write-once conflicts
	ErrCodeDuplicateSlug Code = "DUPLICATE_SLUG"
	ErrCodeAlreadyExists Code = "ALREADY_EXISTS"

	// Filesystem errors
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"
	ErrCodeIO           Code = "IO_ERROR"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
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

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
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
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}

// IsValidation reports whether err was caused by invalid user input.
func IsValidation(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidRequest, ErrCodeInvalidFormat,
		ErrCodeInvalidRenderer, ErrCodeInvalidName, ErrCodeInvalidPath, ErrCodeInvalidPlan:
		return true
	}
	return false
}

// IsConflict reports whether err is a write-once or naming conflict.
func IsConflict(err error) bool {
	switch GetCode(err) {
	case ErrCodeAlreadyExists, ErrCodeDuplicateSlug:
		return true
	}
	return false
}
