package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unified error code across the service.
type ErrorCode string

// Workflow error codes
const (
	ErrDefinition ErrorCode = "DEFINITION_ERROR"
	ErrUpdate     ErrorCode = "UPDATE_ERROR"
	ErrExecution  ErrorCode = "EXECUTION_ERROR"
)

// Transport and collaborator error codes
const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrAuthentication     ErrorCode = "AUTHENTICATION"
	ErrRateLimited        ErrorCode = "RATE_LIMITED"
	ErrModelNotFound      ErrorCode = "MODEL_NOT_FOUND"
	ErrContentFiltered    ErrorCode = "CONTENT_FILTERED"
	ErrTimeout            ErrorCode = "TIMEOUT"
	ErrUpstreamError      ErrorCode = "UPSTREAM_ERROR"
	ErrSessionNotFound    ErrorCode = "SESSION_NOT_FOUND"
	ErrInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// Fixed user-facing titles for the three workflow operation failures.
const (
	TitleDefinitionError = "Workflow Definition Error"
	TitleUpdateError     = "Workflow Update Error"
	TitleExecutionError  = "Workflow Execution Error"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Title      string    `json:"title,omitempty"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Title != "" {
		msg = e.Title + ": " + e.Message
	}
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("[%s] %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewDefinitionError wraps a workflow compilation failure under its fixed title.
func NewDefinitionError(cause error) *Error {
	return newTitledError(ErrDefinition, TitleDefinitionError, http.StatusBadGateway, cause)
}

// NewUpdateError wraps a workflow validation failure under its fixed title.
// The cause's message is expected to enumerate every violation found.
func NewUpdateError(cause error) *Error {
	return newTitledError(ErrUpdate, TitleUpdateError, http.StatusBadRequest, cause)
}

// NewExecutionError wraps a workflow execution failure under its fixed title.
func NewExecutionError(cause error) *Error {
	return newTitledError(ErrExecution, TitleExecutionError, http.StatusBadGateway, cause)
}

// newTitledError builds a user-facing operation error from its root cause.
// If the cause is itself a structured Error, its message, HTTP status,
// retryability and provider carry through so transport detail survives the
// boundary conversion.
func newTitledError(code ErrorCode, title string, status int, cause error) *Error {
	e := &Error{Code: code, Title: title, HTTPStatus: status, Cause: cause}
	if cause == nil {
		return e
	}
	e.Message = cause.Error()
	var inner *Error
	if errors.As(cause, &inner) {
		e.Message = inner.Message
		e.Retryable = inner.Retryable
		e.Provider = inner.Provider
		if inner.HTTPStatus != 0 {
			e.HTTPStatus = inner.HTTPStatus
		}
	}
	return e
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// AsError extracts a structured Error from an error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
