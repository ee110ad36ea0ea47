// Package shared contains common domain errors used across the roster domain packages.
// This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base error kinds that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// Storage errors
	ErrStorage = errors.New("storage error")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "student", "roster"
	Op      string // Operation that failed, e.g., "Add", "Load"
	Kind    error  // Base error kind for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching. A wrapped DomainError matches its
// template (same Domain, Op and Kind), its Kind and its underlying error.
func (e *DomainError) Is(target error) bool {
	if t, ok := target.(*DomainError); ok {
		return e.Domain == t.Domain && e.Op == t.Op && e.Kind == t.Kind && e.Message == t.Message
	}
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// Wrap returns a copy of e carrying err as the underlying cause.
// errors.Is(result, e) stays true.
func (e *DomainError) Wrap(err error) *DomainError {
	return &DomainError{
		Domain:  e.Domain,
		Op:      e.Op,
		Kind:    e.Kind,
		Message: e.Message,
		Err:     err,
	}
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// Student domain errors
var (
	ErrInvalidStudentID   = NewDomainError("student", "Validate", ErrEmptyValue, "student id cannot be empty")
	ErrInvalidStudentName = NewDomainError("student", "Validate", ErrEmptyValue, "student name cannot be empty")
	ErrInvalidSubject     = NewDomainError("student", "Validate", ErrEmptyValue, "subject name cannot be empty")
	ErrInvalidGrade       = NewDomainError("student", "SetGrade", ErrValueOutOfRange, "grade must be a number between 0 and 100")
	ErrMalformedRecord    = NewDomainError("student", "Decode", ErrInvalidFormat, "malformed student record")
)

// Roster domain errors
var (
	ErrStudentNotFound      = NewDomainError("roster", "Find", ErrNotFound, "student not found")
	ErrStudentAlreadyExists = NewDomainError("roster", "Add", ErrAlreadyExists, "student already exists")
	ErrSnapshotMissing      = NewDomainError("roster", "Load", ErrNotFound, "no persisted roster")
	ErrLoadFailed           = NewDomainError("roster", "Load", ErrStorage, "failed to load roster")
	ErrSaveFailed           = NewDomainError("roster", "Save", ErrStorage, "failed to save roster")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrValueOutOfRange)
}
