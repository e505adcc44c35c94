package order

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is matched by every *ValidationError
	ErrValidation = errors.New("invalid order change")
	// ErrEmptyOrder is returned when finalizing a cart with no lines
	ErrEmptyOrder = errors.New("order is empty")
	// ErrFinalized is returned for any change to a finalized order
	ErrFinalized = errors.New("order already finalized")
	// ErrStorage wraps failures of the persistence store
	ErrStorage = errors.New("order storage failed")
)

// ValidationError reports a bad quantity or an unknown item
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) hold
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
