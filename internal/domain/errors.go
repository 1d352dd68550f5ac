package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyBody   = errors.New("message or imageUrl is required")
	ErrForbidden   = errors.New("identity is not a participant of the room")
	ErrRateLimited = errors.New("rate limited")
)

// ValidationError is returned for malformed send or join payloads. Nothing is
// persisted or broadcast when it occurs.
type ValidationError struct {
	Err error
}

func NewValidationError(err error) *ValidationError {
	return &ValidationError{Err: err}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// StoreUnavailableError wraps a failed read or write against the message store.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("message store unavailable (%s): %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}

func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

func IsStoreUnavailable(err error) bool {
	var sErr *StoreUnavailableError
	return errors.As(err, &sErr)
}
