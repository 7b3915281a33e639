package domain

import (
	"errors"
	"fmt"
)

// ErrIllegalTransition is matched with errors.Is by callers that map
// lifecycle violations to a conflict.
var ErrIllegalTransition = errors.New("illegal state transition")

// TransitionError describes a rejected lifecycle move.
type TransitionError struct {
	Entity string
	From   string
	Action string
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("cannot %s %s in status %s", e.Action, e.Entity, e.From)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}

// ErrInvalidInput marks domain rule violations that are the caller's fault.
var ErrInvalidInput = errors.New("invalid input")

// RuleError is a validation-class domain rule violation.
type RuleError struct {
	Field   string
	Message string
}

func (e *RuleError) Error() string { return e.Message }

func (e *RuleError) Is(target error) bool {
	return target == ErrInvalidInput
}
