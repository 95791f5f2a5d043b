// Package errors provides structured error types for the option pricing engine.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType defines the category of an error
type ErrorType uint

const (
	// Unknown is the default error type
	Unknown ErrorType = iota
	// InvalidParameter indicates a pricing precondition failed (bad spot,
	// strike, volatility, barrier placement and so on)
	InvalidParameter
	// Unsupported indicates an unrecognized option style, barrier kind or
	// averaging method
	Unsupported
	// NumericDegeneracy indicates a numerical procedure could not proceed,
	// such as a regression with no in-the-money paths
	NumericDegeneracy
	// NotFound indicates a requested entity does not exist
	NotFound
	// AlreadyExists indicates an entity already exists
	AlreadyExists
	// Network indicates a network error
	Network
	// Timeout indicates an operation timed out
	Timeout
	// Internal indicates an internal error
	Internal
	// ResourceExhausted indicates a resource has been exhausted
	ResourceExhausted
)

// AppError represents an application error with a type and message
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error returns the error message
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError of the same type
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && (t.Message == "" || t.Message == e.Message)
}

// New creates a new AppError
func New(errType ErrorType, message string) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *AppError {
	return &AppError{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with a message, preserving the type of an inner AppError
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Type:    appErr.Type,
			Message: message,
			Err:     err,
		}
	}

	return &AppError{
		Type:    Unknown,
		Message: message,
		Err:     err,
	}
}

// Wrapf wraps an error with a formatted message
func Wrapf(err error, format string, args ...interface{}) *AppError {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithType sets the type of an error, wrapping it if necessary
func WithType(err error, errType ErrorType) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Type:    errType,
			Message: appErr.Message,
			Err:     appErr.Err,
		}
	}

	return &AppError{
		Type:    errType,
		Message: err.Error(),
		Err:     err,
	}
}

// GetType returns the ErrorType of err, or Unknown for non-AppError values
func GetType(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return Unknown
}

// IsType reports whether err is an AppError of the given type
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// InvalidParameterError creates an InvalidParameter error
func InvalidParameterError(message string) *AppError {
	return New(InvalidParameter, message)
}

// InvalidParameterErrorf creates an InvalidParameter error with a formatted message
func InvalidParameterErrorf(format string, args ...interface{}) *AppError {
	return Newf(InvalidParameter, format, args...)
}

// UnsupportedError creates an Unsupported error
func UnsupportedError(message string) *AppError {
	return New(Unsupported, message)
}

// UnsupportedErrorf creates an Unsupported error with a formatted message
func UnsupportedErrorf(format string, args ...interface{}) *AppError {
	return Newf(Unsupported, format, args...)
}

// DegeneracyError creates a NumericDegeneracy error
func DegeneracyError(message string) *AppError {
	return New(NumericDegeneracy, message)
}

// NotFoundError creates a NotFound error
func NotFoundError(message string) *AppError {
	return New(NotFound, message)
}

// NotFoundErrorf creates a NotFound error with a formatted message
func NotFoundErrorf(format string, args ...interface{}) *AppError {
	return Newf(NotFound, format, args...)
}

// AlreadyExistsError creates an AlreadyExists error
func AlreadyExistsError(message string) *AppError {
	return New(AlreadyExists, message)
}

// NetworkError creates a Network error
func NetworkError(message string) *AppError {
	return New(Network, message)
}

// TimeoutError creates a Timeout error
func TimeoutError(message string) *AppError {
	return New(Timeout, message)
}

// InternalError creates an Internal error
func InternalError(message string) *AppError {
	return New(Internal, message)
}

// InternalErrorf creates an Internal error with a formatted message
func InternalErrorf(format string, args ...interface{}) *AppError {
	return Newf(Internal, format, args...)
}

// Common errors
var (
	// ErrNotFound is a generic not found error
	ErrNotFound = NotFoundError("entity not found")

	// ErrTimeout is a generic timeout error
	ErrTimeout = TimeoutError("operation timed out")

	// ErrInternal is a generic internal error
	ErrInternal = InternalError("internal error")
)
