// Package errors provides the structured error type used across the
// CityPath overlay engine. Every layer (backend client, overlay state,
// event lifecycle) reports failures as *AppError so that callers can
// classify them with IsCode instead of string matching.
package errors

import (
	"errors"
	"fmt"
)

// AppError is the single error carrier of the engine. It satisfies the
// standard error interface and supports errors.Is / errors.As / Unwrap
// across the full chain.
type AppError struct {
	// Code classifies the failure. See codes.go.
	Code ErrorCode

	// Message is the primary human-readable description.
	Message string

	// Detail carries supplementary context (cell ids, endpoints, turn
	// numbers) that aids debugging without leaking into user-facing text.
	Detail string

	// Cause is the underlying error, if any.
	Cause error
}

// Error formats as "[<code>] <message>: <detail>", omitting the detail
// segment when empty.
func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail returns a copy of the receiver with Detail set. Safe on nil.
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Detail = detail
	return &clone
}

// New constructs a fresh AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf constructs an AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an AppError around an existing error. Returns nil when
// err is nil so it can be used inline on call results. When err is already
// an *AppError and code is CodeUnknown, the original code is preserved.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if code == CodeUnknown {
		var ae *AppError
		if errors.As(err, &ae) {
			code = ae.Code
		}
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// IsCode reports whether any error in err's chain is an *AppError with the
// given code.
func IsCode(err error, code ErrorCode) bool {
	for err != nil {
		var ae *AppError
		if errors.As(err, &ae) && ae.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// IsNotFound reports whether err's chain contains a CodeNotFound error.
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

// GetCode extracts the code of the first *AppError in err's chain, or
// CodeUnknown when none is present. Returns CodeOK for nil.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// Convenience factories for the engine's taxonomy.

// NotFound constructs a CodeNotFound error.
func NotFound(message string) *AppError {
	return &AppError{Code: CodeNotFound, Message: message}
}

// Validation constructs a CodeValidation error.
func Validation(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message}
}

// Protocol constructs a CodeProtocol error.
func Protocol(message string) *AppError {
	return &AppError{Code: CodeProtocol, Message: message}
}

// Transport constructs a CodeTransport error.
func Transport(message string) *AppError {
	return &AppError{Code: CodeTransport, Message: message}
}

// Geometry constructs a CodeGeometry error.
func Geometry(message string) *AppError {
	return &AppError{Code: CodeGeometry, Message: message}
}

// Internal constructs a CodeInternal error.
func Internal(message string) *AppError {
	return &AppError{Code: CodeInternal, Message: message}
}
