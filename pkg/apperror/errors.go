package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Request validation (VAL) ----

// Validation returns a VAL_001 error carrying the validation message.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

// ---- Resources (RES) ----

func ErrNotFound(entity string) *AppError {
	return New("RES_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Survey lifecycle (SRV) ----

func ErrInvalidTransition(from, action string) *AppError {
	return New("SRV_001", fmt.Sprintf("cannot %s a survey in status %s", action, from), http.StatusConflict)
}

func ErrConcurrentUpdate() *AppError {
	return New("SRV_002", "Survey was modified concurrently, retry the request", http.StatusConflict)
}

// ---- Webhooks (WHK) ----

func ErrWebhookNotConfigured() *AppError {
	return New("WHK_001", "Partner has no webhook URL configured", http.StatusUnprocessableEntity)
}

func ErrWebhookSecretMissing() *AppError {
	return New("WHK_002", "Partner has no webhook secret, rotate one before sending events", http.StatusUnprocessableEntity)
}

func ErrDeliveryNotReplayable(status string) *AppError {
	return New("WHK_003", fmt.Sprintf("delivery in status %s cannot be replayed", status), http.StatusConflict)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_002", "Internal database error", http.StatusInternalServerError, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_003", "Encryption service failure", http.StatusInternalServerError, err)
}
