package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// FieldError describes a single invalid field in a request payload.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Status  int          `json:"status"`
	Details []FieldError `json:"details,omitempty"`
	Err     error        `json:"-"`
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

// Is matches errors by code so predefined sentinels survive Clone and Wrap.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
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
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")

	// Request lifecycle.
	ErrRequestNotFound     = New("REQUEST_NOT_FOUND", http.StatusNotFound, "request not found")
	ErrRequestNotOwned     = New("REQUEST_NOT_OWNED", http.StatusForbidden, "request does not belong to caller")
	ErrRequestNotDraft     = New("REQUEST_NOT_DRAFT", http.StatusConflict, "request is not a draft")
	ErrAttachmentsRequired = New("ATTACHMENTS_REQUIRED", http.StatusBadRequest, "at least one attachment is required before submission")
	ErrInvalidTransition   = New("INVALID_TRANSITION", http.StatusConflict, "status transition not allowed")

	// Accounts and signup.
	ErrUserAlreadyExists = New("USER_ALREADY_EXISTS", http.StatusConflict, "a user with this email already exists")
	ErrSignupPending     = New("SIGNUP_PENDING_EXISTS", http.StatusConflict, "a pending signup request already exists for this email")
	ErrSignupNotPending  = New("SIGNUP_NOT_PENDING", http.StatusConflict, "signup request already reviewed")

	// Notifications.
	ErrUnknownTemplate = New("UNKNOWN_TEMPLATE", http.StatusInternalServerError, "unknown notification template")

	// Dashboard sub-query failures keep distinct codes so callers can tell
	// which aggregation broke.
	ErrStatusSummary       = New("FAILED_STATUS_SUMMARY", http.StatusInternalServerError, "failed to load request status summary")
	ErrRecentRequests      = New("FAILED_RECENT_REQUESTS", http.StatusInternalServerError, "failed to load recent requests")
	ErrPendingInfoRequests = New("FAILED_PENDING_INFO", http.StatusInternalServerError, "failed to load pending-info requests")
	ErrUnreadCount         = New("FAILED_UNREAD_COUNT", http.StatusInternalServerError, "failed to load unread notification count")
	ErrRollingVolume       = New("FAILED_ROLLING_VOLUME", http.StatusInternalServerError, "failed to load 30-day volume")
	ErrTypeAverages        = New("FAILED_TYPE_AVERAGES", http.StatusInternalServerError, "failed to load per-type averages")
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
	return &clone
}

// WithDetails returns a copy of the error carrying field-level details.
func WithDetails(err *Error, details []FieldError) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	clone.Details = details
	return &clone
}
