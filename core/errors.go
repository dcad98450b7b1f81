package core

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for comparison using errors.Is()
// These are generic errors that can be wrapped with additional context
var (
	// Lookup errors
	ErrNotFound = errors.New("no match found")
	ErrUpstream = errors.New("upstream service error")

	// Registry errors
	ErrToolNotFound      = errors.New("tool not found")
	ErrToolNotRegistered = errors.New("tool implementation not registered")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMissingConfiguration = errors.New("missing required configuration")

	// Execution errors
	ErrPlanAborted     = errors.New("plan aborted")
	ErrCircuitOpen     = errors.New("circuit breaker open")
	ErrMissingInput    = errors.New("missing required input")
	ErrContextCanceled = errors.New("context canceled")
)

// AgentError provides structured error information with context.
// It implements the error interface and supports error wrapping.
type AgentError struct {
	Op      string // Operation that failed (e.g., "resolver.Resolve")
	Kind    string // Error kind (e.g., "resolution", "gateway", "planning")
	ID      string // Optional ID of the entity involved
	Message string // Human-readable message
	Err     error  // Underlying error for wrapping
}

// Error returns the string representation of the error
func (e *AgentError) Error() string {
	if e.Op != "" && e.Err != nil {
		if e.ID != "" {
			return fmt.Sprintf("%s [%s]: %v", e.Op, e.ID, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s error", e.Kind)
}

// Unwrap returns the underlying error for use with errors.Is/As
func (e *AgentError) Unwrap() error {
	return e.Err
}

// NewAgentError creates a new AgentError
func NewAgentError(op, kind string, err error) *AgentError {
	return &AgentError{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// WithID attaches an entity ID to the error
func (e *AgentError) WithID(id string) *AgentError {
	e.ID = id
	return e
}

// WithMessage attaches a human-readable message to the error
func (e *AgentError) WithMessage(msg string) *AgentError {
	e.Message = msg
	return e
}
