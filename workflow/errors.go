package workflow

import (
	"errors"
	"fmt"
)

// The engine reports every rejection through one of these error kinds so the
// HTTP layer can map them to response codes without inspecting messages.
var (
	ErrNotFound  = errors.New("bug not found")
	ErrForbidden = errors.New("not authorized")
)

// ValidationError marks malformed or policy-violating input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Invalid builds a ValidationError from a format string.
func Invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ConflictError marks a stale write rejected by the optimistic version check.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return e.Reason
}

func Conflict(format string, args ...any) error {
	return &ConflictError{Reason: fmt.Sprintf(format, args...)}
}
