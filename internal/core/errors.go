package core

import (
	"errors"
	"strings"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")

	ErrEmptyDescription    = errors.New("empty description")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrEnvelopeNotInPeriod = errors.New("no such envelope in this period")
)

// ValidationError collects every problem found while validating an entity.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Add(msg string) {
	e.Messages = append(e.Messages, msg)
}

// OrNil returns nil when nothing was collected, so callers can return it directly.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Messages) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError builds a ValidationError from one or more messages.
func NewValidationError(msgs ...string) *ValidationError {
	return &ValidationError{Messages: msgs}
}

// Messages extracts the message list of err: every validation message when err
// wraps a ValidationError, otherwise its text.
func Messages(err error) []string {
	if err == nil {
		return nil
	}
	var v *ValidationError
	if errors.As(err, &v) {
		return append([]string(nil), v.Messages...)
	}
	return []string{err.Error()}
}
