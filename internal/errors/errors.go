package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a feedq error code.
type ErrorCode string

const (
	ErrInvalidArgument ErrorCode = "INVALID_ARGUMENT" // 400
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"  // 400
	ErrNotFound        ErrorCode = "NOT_FOUND"        // 404
	ErrTransport       ErrorCode = "TRANSPORT"        // 502
	ErrEnrichment      ErrorCode = "ENRICHMENT"       // 502
	ErrInternal        ErrorCode = "INTERNAL"         // 500
)

// FeedError represents a structured error with code, status, and details.
type FeedError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	cause error
}

// Error implements the error interface.
func (e *FeedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the adapter error this FeedError was built from, if any.
func (e *FeedError) Unwrap() error {
	return e.cause
}

// NewInvalidArgument creates a 400 error for a builder call made with unusable arguments.
func NewInvalidArgument(msg string) *FeedError {
	return &FeedError{
		Code:    ErrInvalidArgument,
		Status:  400,
		Message: msg,
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *FeedError {
	return &FeedError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when an activity or feed cannot be found.
func NewNotFound(identifier string) *FeedError {
	return &FeedError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("activity not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewTransport creates a 502 error for a failed feed service call.
func NewTransport(op string, err error) *FeedError {
	msg := op + " failed"
	if err != nil {
		msg = fmt.Sprintf("%s failed: %v", op, err)
	}
	return &FeedError{
		Code:    ErrTransport,
		Status:  502,
		Message: msg,
		Details: map[string]any{"operation": op},
		cause:   err,
	}
}

// NewEnrichment creates a 502 error for a failed enrichment lookup.
func NewEnrichment(err error) *FeedError {
	msg := "enrichment failed"
	if err != nil {
		msg = fmt.Sprintf("enrichment failed: %v", err)
	}
	return &FeedError{
		Code:    ErrEnrichment,
		Status:  502,
		Message: msg,
		cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *FeedError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &FeedError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if err, or any error it wraps, is a FeedError with the given code.
func Is(err error, code ErrorCode) bool {
	var fErr *FeedError
	if stderrors.As(err, &fErr) {
		return fErr.Code == code
	}
	return false
}

// As returns the FeedError carried by err, if any.
func As(err error) (*FeedError, bool) {
	var fErr *FeedError
	if stderrors.As(err, &fErr) {
		return fErr, true
	}
	return nil, false
}
