// Package errors provides the bounded error taxonomy shared by the
// inference service and the edge client. Every failure that crosses a
// package boundary is an *AppError with one of the codes below.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a failure class. The set is closed: handlers and the
// edge client only ever have to deal with these values.
type Code string

const (
	CodeUnknown           Code = "UNKNOWN"
	CodeInvalidAudio      Code = "INVALID_AUDIO"      // malformed or empty input, client fault
	CodeUnsupportedFormat Code = "UNSUPPORTED_FORMAT" // container not recognized, client fault
	CodeModelUnavailable  Code = "MODEL_UNAVAILABLE"  // scorer not initialized yet, retry later
	CodeInference         Code = "INFERENCE_FAILED"   // numerical failure during scoring
	CodeServiceBusy       Code = "SERVICE_BUSY"       // concurrency limit reached
	CodeTimeout           Code = "TIMEOUT"            // edge-local: request deadline exceeded
	CodeConnection        Code = "CONNECTION_FAILED"  // edge-local: service unreachable
	CodeInternal          Code = "INTERNAL"
)

// httpStatusMap maps codes to the HTTP status the service responds with.
var httpStatusMap = map[Code]int{
	CodeInvalidAudio:      http.StatusBadRequest,
	CodeUnsupportedFormat: http.StatusUnsupportedMediaType,
	CodeModelUnavailable:  http.StatusServiceUnavailable,
	CodeInference:         http.StatusInternalServerError,
	CodeServiceBusy:       http.StatusTooManyRequests,
	CodeInternal:          http.StatusInternalServerError,
}

// AppError is the base error type with a structured code.
type AppError struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Cause != nil {
		s += fmt.Sprintf(": %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// HTTPStatus returns the status code the service maps this error to.
func (e *AppError) HTTPStatus() int {
	if s, ok := httpStatusMap[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New creates an AppError with the given code and message.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates an AppError with a formatted message.
func Newf(code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error under a code.
func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// CodeOf extracts the code from an error chain, CodeUnknown if none.
func CodeOf(err error) Code {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// FromStatus converts an HTTP status from the service back into a code.
// Used by the edge client when the error body could not be parsed.
func FromStatus(status int) Code {
	switch status {
	case http.StatusBadRequest:
		return CodeInvalidAudio
	case http.StatusUnsupportedMediaType:
		return CodeUnsupportedFormat
	case http.StatusServiceUnavailable:
		return CodeModelUnavailable
	case http.StatusTooManyRequests:
		return CodeServiceBusy
	default:
		return CodeInternal
	}
}

// IsRetryable reports whether the failure is transient. Timeouts,
// connection failures, an overloaded service, and a model still loading
// are all safe to retry later; client faults and inference failures are not.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeModelUnavailable, CodeServiceBusy, CodeTimeout, CodeConnection:
		return true
	default:
		return false
	}
}
