package model

import (
	"errors"
	"fmt"
)

var (
	// Identity
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")

	// Access control. The message is deliberately generic.
	ErrForbidden = errors.New("no permission for this action on this path")

	// Lookups
	ErrNotFound           = errors.New("not found")
	ErrObjectNotFound     = fmt.Errorf("object %w", ErrNotFound)
	ErrTrashEntryNotFound = fmt.Errorf("trash entry %w", ErrNotFound)
	ErrGrantNotFound      = fmt.Errorf("permission grant %w", ErrNotFound)

	// Conflicts
	ErrAlreadyExists = errors.New("already exists")

	// Validation
	ErrInvalidInput = errors.New("invalid input")
)

// StorageError is returned when the object store rejects or fails a call.
// Code and Message carry the provider's native error detail.
type StorageError struct {
	Op      string
	Key     string
	Code    string
	Message string
	Err     error
}

func (e *StorageError) Error() string {
	if e == nil {
		return ""
	}

	if e.Code != "" {
		return fmt.Sprintf("storage %s %q: %s: %s", e.Op, e.Key, e.Code, e.Message)
	}

	return fmt.Sprintf("storage %s %q: %s", e.Op, e.Key, e.Message)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Invalid builds a validation error that wraps ErrInvalidInput.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
