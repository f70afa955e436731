// Package errors provides the structured domain errors shared by the combat
// engine, its storage backends and the HTTP layer.
package errors

import (
	stderrors "errors"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// CodeInvalidOperation marks a mutation that cannot apply to the current
	// state, e.g. an unknown enemy id.
	CodeInvalidOperation Code = "INVALID_OPERATION"
	// CodeInvalidRollSpec marks malformed dice input: bad damage patterns,
	// non-positive die sizes, out-of-range difficulty or armor tiers.
	CodeInvalidRollSpec Code = "INVALID_ROLL_SPEC"
	// CodePersistenceFailure marks a rejected or timed out room document write.
	CodePersistenceFailure Code = "PERSISTENCE_FAILURE"
	// CodeChannelUnavailable marks a failed broadcast publish or subscribe.
	CodeChannelUnavailable Code = "CHANNEL_UNAVAILABLE"

	CodeNotFound        Code = "NOT_FOUND"
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
)

// HTTPStatus maps the code onto the status returned by the HTTP API.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidRollSpec, CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeInvalidOperation:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodePersistenceFailure, CodeChannelUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code              // Machine-readable error code
	Message  string            // Internal message (for logs)
	Metadata map[string]string // Additional context, e.g. the enemy id
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a simple domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WithMetadata creates a domain error with metadata.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Metadata: metadata,
	}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// GetCode extracts the code of the first domain error in the chain.
func GetCode(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// HasCode reports whether any error in the chain carries code.
func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, &Error{Code: code})
}

// Payload is the JSON body of an error response.
type Payload struct {
	Code     Code              `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ToPayload describes err for an API response. Errors without a domain
// code report UNKNOWN.
func ToPayload(err error) Payload {
	var e *Error
	if stderrors.As(err, &e) {
		return Payload{Code: e.Code, Message: err.Error(), Metadata: e.Metadata}
	}
	return Payload{Code: CodeUnknown, Message: err.Error()}
}

// Err turns a decoded payload back into a domain error.
func (p Payload) Err() *Error {
	code := p.Code
	if code == "" {
		code = CodeUnknown
	}
	return WithMetadata(code, p.Message, p.Metadata)
}
