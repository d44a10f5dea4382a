package leave

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrConfiguration     = errors.New("approval chain misconfigured")
	ErrConflict          = errors.New("concurrent modification")
	ErrValidation        = errors.New("validation failed")
)

// TransitionError names the state and the operation that was refused.
type TransitionError struct {
	Status Status
	Op     Operation
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s a request in status %s", ErrInvalidTransition, e.Op, e.Status)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// FieldError is a validation failure tied to one input field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

func (e *FieldError) Is(target error) bool {
	return target == ErrValidation
}

func invalidField(field, reason string) error {
	return &FieldError{Field: field, Reason: reason}
}
