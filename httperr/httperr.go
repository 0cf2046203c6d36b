// Package httperr carries an HTTP status code and a user-facing message
// alongside an error, so handlers can just return errors.
package httperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an error with an HTTP status attached. The wrapped error is for
// logs, msg is what gets shown to the caller.
type Error struct {
	code int
	msg  string
	err  error
}

func (e *Error) Error() string {
	return e.err.Error()
}

func (e *Error) Unwrap() error {
	return e.err
}

// WithMessage sets the message shown to the caller, which otherwise defaults
// to the status text.
func (e *Error) WithMessage(msg string) *Error {
	e.msg = msg
	return e
}

// Code returns the HTTP status code for the error.
func (e *Error) Code() int {
	return e.code
}

func newErr(code int, format string, args ...interface{}) *Error {
	return &Error{
		code: code,
		msg:  http.StatusText(code),
		err:  fmt.Errorf(format, args...),
	}
}

func BadRequest(format string, args ...interface{}) *Error {
	return newErr(http.StatusBadRequest, format, args...)
}

func Unauthorized(format string, args ...interface{}) *Error {
	return newErr(http.StatusUnauthorized, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return newErr(http.StatusForbidden, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return newErr(http.StatusNotFound, format, args...)
}

func MethodNotAllowed(format string, args ...interface{}) *Error {
	return newErr(http.StatusMethodNotAllowed, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return newErr(http.StatusConflict, format, args...)
}

func Internal(format string, args ...interface{}) *Error {
	return newErr(http.StatusInternalServerError, format, args...)
}

// Extract returns the status code and user message for err. Errors that didn't
// come from this package are internal server errors, and their details stay
// out of the response.
func Extract(err error) (int, string) {
	var herr *Error
	if errors.As(err, &herr) {
		return herr.code, herr.msg
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}
