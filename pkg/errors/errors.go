package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
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
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")

	// Entitlement outcomes. Each denial is a distinct error so the client
	// can render a dedicated panel instead of a generic banner.
	ErrNoBatchAssigned      = New("NO_BATCH_ASSIGNED", http.StatusForbidden, "no batch assigned, contact your administrator")
	ErrNoPlanAssigned       = New("NO_PLAN_ASSIGNED", http.StatusForbidden, "no subscription plan configured for your batch, contact your administrator")
	ErrSubscriptionRequired = New("SUBSCRIPTION_REQUIRED", http.StatusPaymentRequired, "an active subscription is required")
	ErrSubscriptionExpired  = New("SUBSCRIPTION_EXPIRED", http.StatusPaymentRequired, "your subscription has expired")
	ErrAccountSuspended     = New("ACCOUNT_SUSPENDED", http.StatusForbidden, "your account is suspended")
	ErrExamNotAssigned      = New("EXAM_NOT_ASSIGNED", http.StatusForbidden, "this exam is not assigned to your batch")
	ErrMaxAttemptsReached   = New("MAX_ATTEMPTS_REACHED", http.StatusForbidden, "maximum attempts reached for this exam")
	ErrCapacityReached      = New("CAPACITY_REACHED", http.StatusConflict, "college student capacity reached")
	ErrPaymentFailed        = New("PAYMENT_FAILED", http.StatusBadRequest, "payment verification failed")
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
