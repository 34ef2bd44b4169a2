package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Status  int                    `json:"status"`
	Meta    map[string]interface{} `json:"meta,omitempty"`
	Err     error                  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors by code so clones and wrapped copies compare equal to
// the predefined sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrRateLimited  = New("RATE_LIMITED", http.StatusTooManyRequests, "too many requests")
	ErrCacheMiss    = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Assessment errors. All of them are recoverable by the applicant except
// ErrInsufficientQuestions, which signals a misconfigured question bank.
var (
	ErrInvalidApplicationState = New("INVALID_APPLICATION_STATE", http.StatusConflict, "operation not allowed in the current application state")
	ErrTokenNotFound           = New("TOKEN_NOT_FOUND", http.StatusNotFound, "invalid test token")
	ErrTokenExpired            = New("TOKEN_EXPIRED", http.StatusGone, "this test link has expired")
	ErrTokenAlreadyConsumed    = New("TOKEN_ALREADY_CONSUMED", http.StatusConflict, "this test link has already been used")
	ErrApplicationWithdrawn    = New("APPLICATION_WITHDRAWN", http.StatusGone, "the application behind this test link is no longer active")
	ErrInsufficientQuestions   = New("INSUFFICIENT_QUESTIONS", http.StatusServiceUnavailable, "the assessment is temporarily unavailable")
	ErrSessionExpired          = New("SESSION_EXPIRED", http.StatusGone, "time has expired for this test")
	ErrCooldownActive          = New("COOLDOWN_ACTIVE", http.StatusTooManyRequests, "reapplication is not allowed yet")
	ErrAlreadyScored           = New("ALREADY_SCORED", http.StatusOK, "test already scored")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	if err.Meta != nil {
		clone.Meta = make(map[string]interface{}, len(err.Meta))
		for k, v := range err.Meta {
			clone.Meta[k] = v
		}
	}
	return &clone
}

// WithMeta returns a copy of err carrying the given metadata.
func WithMeta(err *Error, meta map[string]interface{}) *Error {
	clone := Clone(err, "")
	if clone == nil {
		return nil
	}
	if clone.Meta == nil {
		clone.Meta = make(map[string]interface{}, len(meta))
	}
	for k, v := range meta {
		clone.Meta[k] = v
	}
	return clone
}
