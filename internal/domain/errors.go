package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrConflict          = errors.New("concurrent modification")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrValueOutOfRange   = errors.New("value out of range")
	ErrBatchFull         = errors.New("batch has no available slots")
	ErrBatchInactive     = errors.New("batch is not active")
)

// TransitionError reports a state change that the current state does not allow.
// It keeps the current state apart from the attempted one so callers can
// render both.
type TransitionError struct {
	Entity    string
	ID        string
	From      string
	Attempted string
	Reason    string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("%s %s: cannot move from %s to %s", e.Entity, e.ID, e.From, e.Attempted)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Is makes errors.Is(err, ErrInvalidTransition) hold.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

func transitionError[S ~string](entity, id string, from, to S, reason string) *TransitionError {
	return &TransitionError{
		Entity:    entity,
		ID:        id,
		From:      string(from),
		Attempted: string(to),
		Reason:    reason,
	}
}

// AsTransitionError unwraps err into a *TransitionError if it is one.
func AsTransitionError(err error) (*TransitionError, bool) {
	var te *TransitionError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// ValidationError carries every problem found with a form. It matches
// ErrInvalidInput.
type ValidationError struct {
	Entity   string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Entity, strings.Join(e.Problems, "; "))
}

// Is makes errors.Is(err, ErrInvalidInput) hold.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Invalid returns a *ValidationError for problems, or nil when there are none.
func Invalid(entity string, problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Entity: entity, Problems: problems}
}
