// Package apperr defines the typed errors returned across Grandline's service
// layer. Every error carries a Kind, which decides the HTTP status, and a
// stable Code that clients can match on.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies an error for the HTTP boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthorized
	KindRateLimited
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindRateLimited:
		return "rate_limited"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Code is a stable, client-facing error identifier.
type Code string

// Error codes. Field-specific validation codes are built with InvalidField.
const (
	CodeInvalidID           Code = "INVALID_ID"
	CodeMissingName         Code = "MISSING_NAME"
	CodeNoFieldsProvided    Code = "NO_FIELDS_PROVIDED"
	CodeNotFound            Code = "NOT_FOUND"
	CodeDuplicateName       Code = "DUPLICATE_NAME"
	CodeInUse               Code = "IN_USE"
	CodeHasAssociations     Code = "HAS_ASSOCIATIONS"
	CodeAlreadyAssociated   Code = "ALREADY_ASSOCIATED"
	CodeNotAssociated       Code = "NOT_ASSOCIATED"
	CodeInvalidBody         Code = "INVALID_BODY"
	CodeMissingFileNames    Code = "MISSING_FILE_NAMES"
	CodeInvalidCredentials  Code = "INVALID_CREDENTIALS"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeRateLimited         Code = "RATE_LIMITED"
	CodeDatabaseUnavailable Code = "DATABASE_UNAVAILABLE"
	CodeInternal            Code = "INTERNAL_ERROR"
)

// InvalidField returns the INVALID_<FIELD> code for a parameter or column.
func InvalidField(field string) Code {
	return Code("INVALID_" + strings.ToUpper(field))
}

// Error is the typed error carried from the service layer to the HTTP boundary.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error of the given kind.
func New(kind Kind, code Code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Validation returns a 400-class error.
func Validation(code Code, message string) *Error {
	return New(KindValidation, code, message)
}

// FieldError returns an INVALID_<FIELD> validation error.
func FieldError(field, message string) *Error {
	e := New(KindValidation, InvalidField(field), message)
	e.Field = field
	return e
}

// NotFound returns a 404-class error.
func NotFound(message string) *Error {
	return New(KindNotFound, CodeNotFound, message)
}

// Conflict returns a 409-class error.
func Conflict(code Code, message string) *Error {
	return New(KindConflict, code, message)
}

// Unauthorized returns a 401-class error.
func Unauthorized(code Code, message string) *Error {
	return New(KindUnauthorized, code, message)
}

// Unavailable returns a 503-class error wrapping the underlying cause.
func Unavailable(message string, err error) *Error {
	e := New(KindUnavailable, CodeDatabaseUnavailable, message)
	e.Err = err
	return e
}

// Internal wraps an unclassified error.
func Internal(err error) *Error {
	e := New(KindInternal, CodeInternal, "an unexpected error occurred")
	e.Err = err
	return e
}

// As extracts an *Error from err. Errors that are not typed are reported as
// internal errors wrapping err.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// HasCode reports whether err is an *Error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
