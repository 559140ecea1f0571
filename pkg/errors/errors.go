// Package errors provides structured error types for the cityposter application.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI and web API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//
// # Poster Pipeline Errors
//
// Four codes are terminal for a poster run and surface to the caller:
//   - LOCATION_NOT_FOUND: the geocoder returned no match
//   - THEME_LOAD: a named theme could not be located or parsed
//   - FEATURE_FETCH: the required road layer is unavailable
//   - OUTPUT_WRITE: the poster could not be persisted
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "invalid unit: %s", unit)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.LocationNotFound(origErr, "no match for %q", city)
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
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidTheme  Code = "INVALID_THEME"
	ErrCodeInvalidUnit   Code = "INVALID_UNIT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Poster pipeline errors
	ErrCodeLocationNotFound Code = "LOCATION_NOT_FOUND"
	ErrCodeThemeLoad        Code = "THEME_LOAD"
	ErrCodeFeatureFetch     Code = "FEATURE_FETCH"
	ErrCodeOutputWrite      Code = "OUTPUT_WRITE"

	// Resource not found errors
	ErrCodeNotFound    Code = "NOT_FOUND"
	ErrCodeJobNotFound Code = "JOB_NOT_FOUND"

	// Network errors
	ErrCodeNetwork     Code = "NETWORK_ERROR"
	ErrCodeTimeout     Code = "TIMEOUT"
	ErrCodeRateLimited Code = "RATE_LIMITED"

	// Job state errors
	ErrCodeConflict  Code = "CONFLICT"
	ErrCodeCancelled Code = "CANCELLED"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
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

// LocationNotFound reports that geocoding returned no match. cause may be nil.
func LocationNotFound(cause error, format string, args ...any) *Error {
	return Wrap(ErrCodeLocationNotFound, cause, format, args...)
}

// ThemeLoad reports that a requested theme could not be located or parsed.
func ThemeLoad(cause error, format string, args ...any) *Error {
	return Wrap(ErrCodeThemeLoad, cause, format, args...)
}

// FeatureFetch reports that the required road layer is unavailable.
func FeatureFetch(cause error, format string, args ...any) *Error {
	return Wrap(ErrCodeFeatureFetch, cause, format, args...)
}

// OutputWrite reports that a rendered poster could not be persisted.
func OutputWrite(cause error, format string, args ...any) *Error {
	return Wrap(ErrCodeOutputWrite, cause, format, args...)
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
		return e.Message
	}
	return err.Error()
}

// Terminal reports whether err carries one of the poster pipeline codes.
func Terminal(err error) bool {
	switch GetCode(err) {
	case ErrCodeLocationNotFound, ErrCodeThemeLoad, ErrCodeFeatureFetch, ErrCodeOutputWrite:
		return true
	}
	return false
}

// RateLimitedError provides additional information for rate-limited responses.
type RateLimitedError struct {
	RetryAfter int // Seconds to wait before retrying
	Message    string
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: retry after %d seconds", e.RetryAfter)
	}
	return "rate limited"
}

// Code returns the error code for this error type.
func (e *RateLimitedError) Code() Code {
	return ErrCodeRateLimited
}
