package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for the client error taxonomy.
// Use errors.Is() to check against these.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrForbidden         = errors.New("forbidden")
	ErrAuthExpired       = errors.New("authorization expired")
	ErrSessionExpired    = errors.New("session expired")
	ErrConflict          = errors.New("conflict")
	ErrTransport         = errors.New("transport error")
	ErrUpstreamError     = errors.New("upstream error")
	ErrRateLimited       = errors.New("rate limited")
	ErrPaymentUnverified = errors.New("payment not verified")
)

// APIError represents a structured error surfaced to the UI boundary.
// Implements error interface and supports unwrapping.
type APIError struct {
	Code       string              `json:"code"`
	Message    string              `json:"message"`
	Fields     map[string][]string `json:"fields,omitempty"` // Per-field validation messages
	StatusCode int                 `json:"-"`                // HTTP status, 0 for client-side errors
	Err        error               `json:"-"`                // Wrapped error, not serialized
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// FieldSummary renders field errors as "field: msg; field: msg" in stable order.
func (e *APIError) FieldSummary() string {
	if len(e.Fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], " ")))
	}
	return strings.Join(parts, "; ")
}

// NewNotFoundError creates a 404 error for missing resources.
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: 404,
		Err:        ErrNotFound,
	}
}

// NewValidationError creates a 400 error for a single invalid input.
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:       "VALIDATION_ERROR",
		Message:    fmt.Sprintf("invalid %s: %s", field, reason),
		Fields:     map[string][]string{field: {reason}},
		StatusCode: 400,
		Err:        ErrInvalidRequest,
	}
}

// NewFieldValidationError creates a 400 error carrying the server's per-field messages verbatim.
func NewFieldValidationError(fields map[string][]string) *APIError {
	e := &APIError{
		Code:       "VALIDATION_ERROR",
		Message:    "request rejected",
		Fields:     fields,
		StatusCode: 400,
		Err:        ErrInvalidRequest,
	}
	if summary := e.FieldSummary(); summary != "" {
		e.Message = summary
	}
	return e
}

// NewAuthExpiredError creates a 401 error for a rejected access credential.
func NewAuthExpiredError(reason string) *APIError {
	return &APIError{
		Code:       "AUTH_EXPIRED",
		Message:    reason,
		StatusCode: 401,
		Err:        ErrAuthExpired,
	}
}

// NewSessionExpiredError creates the terminal error raised after a failed refresh.
// The session has already been torn down when this is returned.
func NewSessionExpiredError(cause error) *APIError {
	err := ErrSessionExpired
	if cause != nil {
		err = fmt.Errorf("%w: %v", ErrSessionExpired, cause)
	}
	return &APIError{
		Code:       "SESSION_EXPIRED",
		Message:    "your session has expired, please log in again",
		StatusCode: 401,
		Err:        err,
	}
}

// NewForbiddenError creates a 403 error.
func NewForbiddenError(reason string) *APIError {
	return &APIError{
		Code:       "FORBIDDEN",
		Message:    reason,
		StatusCode: 403,
		Err:        ErrForbidden,
	}
}

// NewConflictError creates an error for requests the server refused on business grounds
// (out-of-stock variant, duplicate add).
func NewConflictError(status int, reason string) *APIError {
	return &APIError{
		Code:       "CONFLICT",
		Message:    reason,
		StatusCode: status,
		Err:        ErrConflict,
	}
}

// NewTransportError wraps network and timeout failures.
func NewTransportError(err error) *APIError {
	return &APIError{
		Code:    "TRANSPORT_ERROR",
		Message: "could not reach the store",
		Err:     fmt.Errorf("%w: %v", ErrTransport, err),
	}
}

// NewServerError creates an error for 5xx and unexpected responses.
func NewServerError(status int, detail string) *APIError {
	msg := "the store returned an error"
	if detail != "" {
		msg = detail
	}
	return &APIError{
		Code:       "SERVER_ERROR",
		Message:    msg,
		StatusCode: status,
		Err:        fmt.Errorf("%w: status %d", ErrUpstreamError, status),
	}
}

// NewRateLimitError creates a 429 error for rate limiting.
func NewRateLimitError() *APIError {
	return &APIError{
		Code:       "RATE_LIMITED",
		Message:    "too many requests, please retry later",
		StatusCode: 429,
		Err:        ErrRateLimited,
	}
}

// NewPaymentVerificationError flags the risk class where the gateway may have charged
// the buyer but the store could not confirm it.
func NewPaymentVerificationError(cause error) *APIError {
	err := ErrPaymentUnverified
	if cause != nil {
		err = fmt.Errorf("%w: %v", ErrPaymentUnverified, cause)
	}
	return &APIError{
		Code:    "PAYMENT_VERIFICATION_FAILED",
		Message: "payment verification failed: the payment may have succeeded but could not be verified",
		Err:     err,
	}
}
