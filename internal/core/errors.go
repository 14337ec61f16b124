package core

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrPersistence       = errors.New("persistence failure")
	ErrAggregateMismatch = errors.New("category totals do not add up to the grand total")
)

// ValidationError reports a malformed input together with the offending field.
// It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid is shorthand for a field-level validation error.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// PersistenceError wraps an opaque store failure. The wrapped driver error is
// kept for logging only.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// Persistence wraps err as a PersistenceError for op. Nil stays nil and
// errors that already carry a core classification pass through unchanged.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrPersistence) || errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
