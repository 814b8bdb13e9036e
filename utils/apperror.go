package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies failures by how callers are expected to react.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindNotFound
	KindConflict
	KindPolicy
	KindExternalDegraded
	KindPersistence
	KindConfiguration
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindPolicy:
		return "policy"
	case KindExternalDegraded:
		return "external_degraded"
	case KindPersistence:
		return "persistence"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Stable reason codes returned to API callers.
const (
	CodeInvalidTimeInput          = "invalid_time_input"
	CodeInvalidRequest            = "invalid_request"
	CodeCustomerNotFound          = "customer_not_found"
	CodeNoSessionsAvailable       = "no_sessions_available"
	CodeInsufficientCredit        = "insufficient_credit"
	CodeSlotConflict              = "slot_conflict"
	CodeOutsideBookingWindow      = "outside_booking_window"
	CodeBookingPersistFailed      = "booking_persist_failed"
	CodeBookingNotFound           = "booking_not_found"
	CodeEmailMismatch             = "email_mismatch"
	CodeAlreadyCancelled          = "already_cancelled"
	CodePastBooking               = "past_booking"
	CodeInsufficientNotice        = "insufficient_notice"
	CodeCannotRescheduleCancelled = "cannot_reschedule_cancelled"
	CodeCalendarUnavailable       = "calendar_unavailable"
	CodeStoreUnavailable          = "store_unavailable"
	CodeInvalidSignature          = "invalid_signature"
	CodeNotConfigured             = "not_configured"
	CodeUnauthorized              = "unauthorized"
	CodeBlockNotFound             = "block_not_found"
	CodeRateLimited               = "rate_limited"
	CodeInternal                  = "internal_error"
)

// AppError is the structured failure every service returns across its boundary.
type AppError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error kind onto a response status.
func (e *AppError) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindPolicy:
		return http.StatusUnprocessableEntity
	case KindExternalDegraded:
		return http.StatusBadGateway
	case KindConfiguration:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func NewError(kind ErrorKind, code, message string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message}
}

func WrapError(kind ErrorKind, code, message string, err error) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message, Err: err}
}

func Validation(code, message string) *AppError {
	return NewError(KindValidation, code, message)
}

func NotFound(code, message string) *AppError {
	return NewError(KindNotFound, code, message)
}

func Conflict(code, message string) *AppError {
	return NewError(KindConflict, code, message)
}

func PolicyViolation(code, message string) *AppError {
	return NewError(KindPolicy, code, message)
}

func Unconfigured(message string) *AppError {
	return NewError(KindConfiguration, CodeNotConfigured, message)
}

func Persistence(code, message string, err error) *AppError {
	return WrapError(KindPersistence, code, message, err)
}

// HasCode reports whether err carries the given reason code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// AsAppError converts any error into an AppError. Unknown errors become
// internal persistence failures whose cause is not exposed to callers.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return WrapError(KindPersistence, CodeInternal, "an unexpected error occurred", err)
}
