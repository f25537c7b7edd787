package queue

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinels for errors.Is. Each concrete error type below matches exactly one.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("visit not found")
	ErrInvalidState      = errors.New("visit is terminal")
	ErrIllegalTransition = errors.New("illegal status transition")
)

// ValidationError reports malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports an unknown visit id.
type NotFoundError struct {
	ID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("visit %s not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InvalidStateError reports a mutation attempted on a terminal visit.
type InvalidStateError struct {
	ID     uuid.UUID
	Status Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("visit %s is %s and can no longer be modified", e.ID, e.Status)
}

func (e *InvalidStateError) Is(target error) bool { return target == ErrInvalidState }

// IllegalTransitionError reports a status change the transition table forbids.
type IllegalTransitionError struct {
	ID   uuid.UUID
	From Status
	To   Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("visit %s cannot move from %s to %s", e.ID, e.From, e.To)
}

func (e *IllegalTransitionError) Is(target error) bool { return target == ErrIllegalTransition }
