package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput indicates that input validation failed
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable indicates that an external collaborator could not be reached
	ErrUnavailable = errors.New("service unavailable")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")
)

// SafetyBlockError is returned when a guardrail decision refuses a query or a
// generated answer. It is user-facing: Category and Reason are safe to display.
type SafetyBlockError struct {
	Direction string // "input" or "output"
	Category  string
	Reason    string
}

func (e *SafetyBlockError) Error() string {
	return fmt.Sprintf("safety block on %s (category %s): %s", e.Direction, e.Category, e.Reason)
}

// BackendFailureError is returned when an LLM call fails after its retry
// budget is exhausted. Role names the agent whose turn was running.
type BackendFailureError struct {
	Role string
	Err  error
}

func (e *BackendFailureError) Error() string {
	return fmt.Sprintf("llm backend failure in %s turn: %v", e.Role, e.Err)
}

func (e *BackendFailureError) Unwrap() error { return e.Err }

// ToolFailureError describes one failed search call. It is recovered locally
// by the researcher and never terminates a query.
type ToolFailureError struct {
	Tool  string
	Query string
	Err   error
}

func (e *ToolFailureError) Error() string {
	return fmt.Sprintf("tool %s failed for query %q: %v", e.Tool, e.Query, e.Err)
}

func (e *ToolFailureError) Unwrap() error { return e.Err }

// Is reports whether err matches target, delegating to the standard library.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain matching target.
func As(err error, target any) bool { return errors.As(err, target) }
