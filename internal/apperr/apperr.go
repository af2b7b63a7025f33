package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable, machine-readable error class.
type Code string

const (
	CodeValidation        Code = "VALIDATION"
	CodeIllegalTransition Code = "ILLEGAL_TRANSITION"
	CodeExternalService   Code = "EXTERNAL_SERVICE"
	CodeConflict          Code = "CONFLICT"
	CodeNotFound          Code = "NOT_FOUND"
)

// Error carries a stable code, the HTTP status it maps to, and a
// human-readable message.
type Error struct {
	Code    Code
	Status  int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(code Code, status int, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Status:  status,
		Message: fmt.Sprintf(format, args...),
	}
}

// Validation reports malformed or incomplete input. User-correctable.
func Validation(format string, args ...interface{}) *Error {
	return newError(CodeValidation, http.StatusBadRequest, format, args...)
}

// IllegalTransition reports a state-machine violation. Caller-correctable,
// never fatal.
func IllegalTransition(format string, args ...interface{}) *Error {
	return newError(CodeIllegalTransition, http.StatusUnprocessableEntity, format, args...)
}

// Conflict reports that a concurrent mutation lost a race.
func Conflict(format string, args ...interface{}) *Error {
	return newError(CodeConflict, http.StatusConflict, format, args...)
}

// NotFound reports a missing entity.
func NotFound(format string, args ...interface{}) *Error {
	return newError(CodeNotFound, http.StatusNotFound, format, args...)
}

// External wraps a collaborator failure after retries were exhausted.
func External(cause error, format string, args ...interface{}) *Error {
	e := newError(CodeExternalService, http.StatusBadGateway, format, args...)
	e.Cause = cause
	return e
}

// From extracts an *Error from err, or nil when err is not one.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	e := From(err)
	return e != nil && e.Code == code
}
