package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Machine-readable error codes surfaced in the error envelope. Clients key
// off these rather than the human message.
const (
	CodeValidation        = "VALIDATION_FAILED"
	CodeNotFound          = "NOT_FOUND"
	CodeDuplicateEntry    = "DUPLICATE_ENTRY"
	CodeAuthHeaderMissing = "AUTH_HEADER_MISSING"
	CodeTokenExpired      = "TOKEN_EXPIRED"
	CodeTokenInvalid      = "TOKEN_INVALID"
	CodeTokenRevoked      = "TOKEN_REVOKED"
	CodeWrongProvider     = "WRONG_PROVIDER"
	CodeBadCredentials    = "INVALID_CREDENTIALS"
	CodeUntrustedIDToken  = "UNTRUSTED_ID_TOKEN"
	CodeForbidden         = "FORBIDDEN"
	CodeInternal          = "INTERNAL_ERROR"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func Validation(format string, args ...any) *Error {
	return New(http.StatusBadRequest, CodeValidation, fmt.Errorf(format, args...))
}

func NotFound(format string, args ...any) *Error {
	return New(http.StatusNotFound, CodeNotFound, fmt.Errorf(format, args...))
}

func Duplicate(format string, args ...any) *Error {
	return New(http.StatusConflict, CodeDuplicateEntry, fmt.Errorf(format, args...))
}

func Unauthorized(code, format string, args ...any) *Error {
	return New(http.StatusUnauthorized, code, fmt.Errorf(format, args...))
}

func Forbidden(format string, args ...any) *Error {
	return New(http.StatusForbidden, CodeForbidden, fmt.Errorf(format, args...))
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, CodeInternal, err)
}

// From unwraps err to the typed API error, if any.
func From(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsCode reports whether err is an API error carrying the given code.
func IsCode(err error, code string) bool {
	if ae, ok := From(err); ok {
		return ae.Code == code
	}
	return false
}
