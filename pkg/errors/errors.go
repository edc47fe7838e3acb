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
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss    = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Pipeline errors raised by timetable generation. SolverRuntime and Parse are
// distinct on purpose: callers must be able to tell "the solver failed" from
// "the solver succeeded but produced unreadable output".
var (
	ErrReferentialInconsistency = New("REFERENTIAL_INCONSISTENCY", http.StatusUnprocessableEntity, "document references a label missing from its catalog")
	ErrStagingIO                = New("STAGING_IO", http.StatusBadGateway, "failed to stage solver files")
	ErrSolverRuntime            = New("SOLVER_RUNTIME", http.StatusBadGateway, "solver execution failed")
	ErrSolverNoOutput           = New("SOLVER_NO_OUTPUT", http.StatusBadGateway, "solver reported success but produced no output")
	ErrParse                    = New("PARSE_ERROR", http.StatusBadGateway, "solver output has unexpected shape")
	ErrPipelineFailed           = New("PIPELINE_FAILED", http.StatusInternalServerError, "timetable generation pipeline failed")
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

// CodeOf extracts the machine code from any error, defaulting to INTERNAL_ERROR.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	return FromError(err).Code
}
