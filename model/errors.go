package model

import (
	"fmt"
	"net/http"
)

// Standard error codes.
const (
	ErrValidationFailed   = "FK_VALIDATION_FAILED"
	ErrUserRefNotFound    = "FK_USER_NOT_FOUND"
	ErrItemRefNotFound    = "FK_ITEM_NOT_FOUND"
	ErrItemUnavailable    = "ITEM_UNAVAILABLE"
	ErrOrderConflict      = "ORDER_CONFLICT"
	ErrOrderNotFound      = "ORDER_NOT_FOUND"
	ErrItemNotFound       = "ITEM_NOT_FOUND"
	ErrUserNotFound       = "USER_NOT_FOUND"
	ErrJobNotFound        = "JOB_NOT_FOUND"
	ErrUpstream           = "UPSTREAM_ERROR"
	ErrBackendUnavailable = "BACKEND_UNAVAILABLE"
	ErrBackendTimeout     = "BACKEND_TIMEOUT"
	ErrInternalError      = "INTERNAL_ERROR"
)

// ErrorEnvelope is the standard error response envelope returned by the
// gateway. It implements the error interface.
type ErrorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	TraceID string `json:"traceId,omitempty"`

	// Status overrides the code-to-status mapping when non-zero. Used by
	// the generic upstream-failure class to pass 5xx codes through.
	Status int `json:"-"`
}

// Error implements the error interface.
func (e *ErrorEnvelope) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithTraceID returns a copy of the envelope carrying the given trace id.
func (e *ErrorEnvelope) WithTraceID(traceID string) *ErrorEnvelope {
	out := *e
	out.TraceID = traceID
	return &out
}

// NewValidationFailedError returns a FK_VALIDATION_FAILED error.
func NewValidationFailedError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrValidationFailed, Message: msg}
}

// NewUserRefNotFoundError returns a FK_USER_NOT_FOUND error.
func NewUserRefNotFoundError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrUserRefNotFound,
		Message: "Referenced user does not exist",
	}
}

// NewItemRefNotFoundError returns a FK_ITEM_NOT_FOUND error.
func NewItemRefNotFoundError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrItemRefNotFound,
		Message: "Referenced item does not exist",
	}
}

// NewItemUnavailableError returns an ITEM_UNAVAILABLE error.
func NewItemUnavailableError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrItemUnavailable,
		Message: "Item is not available for the requested window",
	}
}

// NewOrderConflictError returns an ORDER_CONFLICT error with the upstream
// response body attached as structured details.
func NewOrderConflictError(details any) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrOrderConflict,
		Message: "Order service rejected the request",
		Details: details,
	}
}

// NewNotFoundError returns a not-found error for the given resource code.
func NewNotFoundError(code, msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: code, Message: msg}
}

// NewUpstreamError returns the generic upstream-failure error for an
// unexpected backend status. The upstream status is passed through when it
// is a server error; client errors surface as 502 since the gateway has no
// mapping for them.
func NewUpstreamError(service string, status int) *ErrorEnvelope {
	passthrough := status
	if passthrough < http.StatusInternalServerError {
		passthrough = http.StatusBadGateway
	}
	return &ErrorEnvelope{
		Code:    ErrUpstream,
		Message: fmt.Sprintf("The %s service returned an unexpected response", service),
		Status:  passthrough,
	}
}

// NewBackendUnavailableError returns a BACKEND_UNAVAILABLE error.
func NewBackendUnavailableError(service string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrBackendUnavailable,
		Message: fmt.Sprintf("The %s service is temporarily unavailable", service),
	}
}

// NewBackendTimeoutError returns a BACKEND_TIMEOUT error.
func NewBackendTimeoutError(service string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrBackendTimeout,
		Message: fmt.Sprintf("The %s service did not respond in time", service),
	}
}

// NewInternalError returns an INTERNAL_ERROR.
func NewInternalError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrInternalError,
		Message: "An unexpected error occurred",
	}
}
