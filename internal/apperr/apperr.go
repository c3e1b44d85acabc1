// Package apperr defines the coded errors shared by the user service layers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies an application error class.
type Code struct {
	ID      string
	Message string
	Status  int
}

var (
	UserNotFound         = Code{"U001", "user not found", http.StatusNotFound}
	EmailAlreadyExists   = Code{"U002", "email already exists", http.StatusConflict}
	InvalidPassword      = Code{"U003", "invalid password", http.StatusBadRequest}
	UserAlreadyInactive  = Code{"U004", "user is already inactive", http.StatusConflict}
	UserAlreadySuspended = Code{"U005", "user is already suspended", http.StatusConflict}
	ProfileNotFound      = Code{"U006", "profile not found", http.StatusNotFound}
	SettingNotFound      = Code{"U007", "setting not found", http.StatusNotFound}

	AuthTokenExpired = Code{"A001", "authentication token expired", http.StatusUnauthorized}
	AuthTokenInvalid = Code{"A002", "invalid authentication token", http.StatusUnauthorized}
	AuthAccessDenied = Code{"A003", "access denied", http.StatusForbidden}

	InternalServerError = Code{"E001", "internal server error", http.StatusInternalServerError}
	InvalidRequest      = Code{"E002", "invalid request", http.StatusBadRequest}
	ValidationError     = Code{"E003", "validation failed", http.StatusBadRequest}
	TooManyRequests     = Code{"E004", "too many requests", http.StatusTooManyRequests}
)

// Error is an error tagged with a Code.
type Error struct {
	Code Code
	Msg  string
	Err  error
}

// New returns an Error carrying the code's default message.
func New(code Code) *Error {
	return &Error{Code: code}
}

// Newf returns an Error whose message overrides the code's default.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches cause to a coded error.
func Wrap(code Code, cause error) *Error {
	return &Error{Code: code, Err: cause}
}

func (e *Error) Error() string {
	msg := e.Message()
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Message is the client-facing text of the error.
func (e *Error) Message() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Code.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code id, so sentinels compare by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code.ID == e.Code.ID
}

// CodeOf reports the code of err, or InternalServerError when err is not coded.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return InternalServerError
}

// MessageOf returns the client-facing message for err.
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message()
	}
	return InternalServerError.Message
}
