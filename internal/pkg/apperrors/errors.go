package apperrors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// Resource errors
	ErrResourceNotFound      = errors.New("resource not found")
	ErrResourceAlreadyExists = errors.New("resource already exists")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")

	// Store errors. ErrStoreUnavailable marks failures worth retrying.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Enrollment errors
var (
	ErrEnrollmentNotFound = fmt.Errorf("enrollment %w", ErrResourceNotFound)
)

// Student errors
var (
	ErrStudentNotFound      = fmt.Errorf("student %w", ErrResourceNotFound)
	ErrPersonalDataNotFound = fmt.Errorf("personal data %w", ErrResourceNotFound)
	ErrInvalidStudentID     = fmt.Errorf("%w: invalid student ID", ErrValidationFailed)
)

// Document errors
var (
	ErrDocumentNotFound = fmt.Errorf("document %w", ErrResourceNotFound)
	// ErrNoLinkage means no strategy could map a student reference to a document set.
	ErrNoLinkage = errors.New("no enrollment linked to student")
)

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewStoreUnavailableError wraps a driver failure so that retry loops pick it up.
func NewStoreUnavailableError(op string, err error) error {
	return &CustomError{
		Err:     errors.Join(ErrStoreUnavailable, err),
		Message: fmt.Sprintf("%s: %v", op, err),
		Code:    "STORE_UNAVAILABLE",
	}
}

// IsRetryable reports whether err belongs to the transient store class.
// Validation and not-found errors are never retryable even when joined with a transient one.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if Is(err, ErrValidationFailed, ErrResourceNotFound) {
		return false
	}
	return errors.Is(err, ErrStoreUnavailable)
}

// Is returns whether target matches any of the errors in errList
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

// FieldError is a validation failure tied to a single attribute.
type FieldError struct {
	Entity string
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("validation failed: %s.%s %s", e.Entity, e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrValidationFailed
func (e *FieldError) Unwrap() error {
	return ErrValidationFailed
}

// NewFieldError builds a FieldError
func NewFieldError(entity, field, reason string) *FieldError {
	return &FieldError{Entity: entity, Field: field, Reason: reason}
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Code    string
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithCode adds an error code
func (e *CustomError) WithCode(code string) *CustomError {
	e.Code = code
	return e
}
