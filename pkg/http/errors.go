package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/AtashM95/tradebot/internal/domain/errs"
)

// AppError represents application-level error with HTTP status.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error.
func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Field:   field,
		Status:  status,
	}
}

// WithParam sets a single error param.
func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{})
	}
	e.Params[key] = value
	return e
}

// WithError wraps an underlying error.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// NotFoundError creates a 404 error.
func NotFoundError(message string) *AppError {
	return NewAppError("ERR_NOT_FOUND", "", message, http.StatusNotFound)
}

// BadRequestError creates a 400 error.
func BadRequestError(message string) *AppError {
	return NewAppError("ERR_BAD_REQUEST", "", message, http.StatusBadRequest)
}

// UnauthorizedError creates a 401 error.
func UnauthorizedError(message string) *AppError {
	return NewAppError("ERR_UNAUTHORIZED", "", message, http.StatusUnauthorized)
}

func TooManyRequestsError(message string) *AppError {
	return NewAppError("ERR_TOO_MANY_REQUESTS", "", message, http.StatusTooManyRequests)
}

// InternalError creates a 500 error.
func InternalError(message string) *AppError {
	return NewAppError("ERR_INTERNAL", "", message, http.StatusInternalServerError)
}

// FromDomain maps an error to its HTTP representation. Internal errors keep
// their cause out of the message.
func FromDomain(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	msg := err.Error()
	var de *errs.Error
	if errors.As(err, &de) {
		msg = de.Message
	}

	switch errs.KindOf(err) {
	case errs.KindInvalidInput:
		return BadRequestError(msg).WithError(err)
	case errs.KindNotFound:
		return NotFoundError(msg).WithError(err)
	case errs.KindUnauthorized:
		return UnauthorizedError(msg).WithError(err)
	case errs.KindInsufficientHistory:
		return NewAppError("ERR_INSUFFICIENT_HISTORY", "", msg, http.StatusUnprocessableEntity).WithError(err)
	case errs.KindPartialFailure:
		return NewAppError("ERR_PARTIAL_FAILURE", "", msg, http.StatusMultiStatus).WithError(err)
	case errs.KindUnavailable:
		return NewAppError("ERR_UNAVAILABLE", "", msg, http.StatusServiceUnavailable).WithError(err)
	default:
		return InternalError("internal error").WithError(err)
	}
}
