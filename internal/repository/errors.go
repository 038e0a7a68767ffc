package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrTaskNotFound is returned when no task has the requested identifier.
	ErrTaskNotFound = errors.New("task not found")
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrValidation is matched by every ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrBackend is matched by every BackendError.
	ErrBackend = errors.New("backend failure")

	// ErrCreateUser is returned when creating a user fails inside the signup transaction.
	ErrCreateUser = errors.New("user repository: create user failed")
	// ErrCreateProfile is returned when creating the role profile fails inside the signup transaction.
	ErrCreateProfile = errors.New("user repository: create profile failed")
)

// ValidationError reports a missing or malformed field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func missingField(field string) error {
	return &ValidationError{Field: field, Message: "is required"}
}

// BackendError wraps a failure of the active store.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func (e *BackendError) Is(target error) bool {
	return target == ErrBackend
}

func backendErr(op string, err error) error {
	return &BackendError{Op: op, Err: err}
}
