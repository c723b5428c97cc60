package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure so transports can map it without string matching.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidInput
	KindNotFound
	KindUnauthorized
	KindInsufficientHistory
	KindPartialFailure
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindInsufficientHistory:
		return "insufficient_history"
	case KindPartialFailure:
		return "partial_failure"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Sentinels usable with errors.Is.
var (
	ErrInvalidInput        = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrNotFound            = &Error{Kind: KindNotFound, Message: "not found"}
	ErrUnauthorized        = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrInsufficientHistory = &Error{Kind: KindInsufficientHistory, Message: "insufficient history"}
	ErrPartialFailure      = &Error{Kind: KindPartialFailure, Message: "partial failure"}
	ErrUnavailable         = &Error{Kind: KindUnavailable, Message: "unavailable"}
)

// Error is a classified domain error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works
// for every not-found error regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func newf(kind Kind, format string, a ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, a...)}
}

func InvalidInput(format string, a ...interface{}) *Error {
	return newf(KindInvalidInput, format, a...)
}

func NotFound(format string, a ...interface{}) *Error {
	return newf(KindNotFound, format, a...)
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func InsufficientHistory(format string, a ...interface{}) *Error {
	return newf(KindInsufficientHistory, format, a...)
}

func PartialFailure(format string, a ...interface{}) *Error {
	return newf(KindPartialFailure, format, a...)
}

// Unavailable wraps a failure of an external dependency.
func Unavailable(err error, format string, a ...interface{}) *Error {
	e := newf(KindUnavailable, format, a...)
	e.Err = err
	return e
}

// KindOf reports the kind of err, or KindInternal when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
