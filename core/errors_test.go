package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAgentErrorWrapping(t *testing.T) {
	err := NewAgentError("resolver.Resolve", "resolution", ErrNotFound).
		WithID("Litoria peronii").
		WithMessage("name not found on any endpoint")

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "resolver.Resolve")
	assert.Contains(t, err.Error(), "Litoria peronii")

	var agentErr *AgentError
	assert.True(t, errors.As(err, &agentErr))
	assert.Equal(t, "resolution", agentErr.Kind)
}

func TestAgentErrorMessageFallbacks(t *testing.T) {
	assert.Equal(t, "something went wrong",
		(&AgentError{Kind: "planning", Message: "something went wrong"}).Error())
	assert.Equal(t, "no match found",
		(&AgentError{Err: ErrNotFound}).Error())
	assert.Equal(t, "planning error",
		(&AgentError{Kind: "planning"}).Error())
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrUpstream, ErrToolNotFound, ErrToolNotRegistered,
		ErrInvalidConfiguration, ErrMissingConfiguration,
		ErrPlanAborted, ErrCircuitOpen, ErrMissingInput, ErrContextCanceled,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				continue
			}
			assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
		}
	}
}

func TestSentinelWrappingSurvivesFmt(t *testing.T) {
	wrapped := fmt.Errorf("lookup %q: %w", "koala", ErrNotFound)
	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.False(t, errors.Is(wrapped, ErrUpstream))
}
