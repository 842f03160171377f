// Package apperrors defines the error taxonomy shared by the storage, query
// and session layers. Callers match kinds with errors.Is against the sentinels
// below; CustomError carries the context for a particular failure.
package apperrors

import (
	"errors"
	"fmt"
)

// Lookup errors
var (
	// ErrNotFound means zero rows where exactly one or at least one was expected
	ErrNotFound = errors.New("entity not found")
	// ErrNonUniqueResult means more than one row where exactly one was expected
	ErrNonUniqueResult = errors.New("query did not return a unique result")
)

// Lifecycle errors
var (
	// ErrInvalidState means an operation was invoked in the wrong entity or
	// transaction state, e.g. persisting an entity that already has an identity
	ErrInvalidState = errors.New("invalid state")
	// ErrClosedSession means the session was used after Close
	ErrClosedSession = errors.New("session is closed")
)

// Write errors
var (
	// ErrConstraintViolation is a storage-level integrity failure
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrValidationFailed means an entity failed field validation before any write
	ErrValidationFailed = errors.New("validation failed")
)

// Query errors
var (
	// ErrInvalidQuery means a query request referenced an unknown field or relation,
	// or carried negative pagination values
	ErrInvalidQuery = errors.New("invalid query")
)

// CustomError represents a failure of one of the kinds above with additional context
type CustomError struct {
	Err     error
	Message string
	Details map[string]interface{}
	Cause   error
}

// Error implements error interface
func (e *CustomError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = "unknown error"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As
func (e *CustomError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// NewCustomError creates a CustomError of the given kind
func NewCustomError(kind error, message string) *CustomError {
	return &CustomError{
		Err:     kind,
		Message: message,
	}
}

// NewNotFoundError reports a missing entity of the given type and id
func NewNotFoundError(entity string, id int64) error {
	return NewCustomError(ErrNotFound, fmt.Sprintf("%s %d not found", entity, id)).
		WithDetails(map[string]interface{}{"entity": entity, "id": id})
}

// NewInvalidStateError reports an operation invoked in the wrong lifecycle state
func NewInvalidStateError(format string, args ...interface{}) error {
	return NewCustomError(ErrInvalidState, fmt.Sprintf(format, args...))
}

// NewInvalidQueryError reports a malformed query request
func NewInvalidQueryError(format string, args ...interface{}) error {
	return NewCustomError(ErrInvalidQuery, fmt.Sprintf(format, args...))
}

// NewConstraintError wraps a driver error that storage classified as an
// integrity violation
func NewConstraintError(message string, cause error) error {
	return &CustomError{
		Err:     ErrConstraintViolation,
		Message: message,
		Cause:   cause,
	}
}

// NewValidationError wraps field validation failures
func NewValidationError(entity string, cause error) error {
	return &CustomError{
		Err:     ErrValidationFailed,
		Message: fmt.Sprintf("invalid %s", entity),
		Cause:   cause,
	}
}

// Is returns whether err matches target or any of the errors in errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// IsLookup reports whether err is a lookup or request error that leaves an
// open transaction usable
func IsLookup(err error) bool {
	return Is(err, ErrNotFound, ErrNonUniqueResult, ErrInvalidQuery, ErrValidationFailed)
}
