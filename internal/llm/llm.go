// Package llm is the boundary to the external language model used by
// llm_prompt generation rules.
//
// The engine only sees the Client interface; production wires an Ollama
// chat client wrapped in a single-retry decorator, tests wire a scripted
// fake.
package llm

import (
	"context"
	"errors"
)

// Client performs one synchronous model call.
//
// CallModel may block for seconds; implementations must honor ctx for
// timeout and cancellation. The returned string is the raw model text,
// untrimmed.
type Client interface {
	// CallModel sends prompt under systemPrompt and returns the response.
	CallModel(ctx context.Context, prompt, systemPrompt string, temperature float64, maxTokens int) (string, error)

	// Name identifies the backing model for logs.
	Name() string
}

// ErrUnavailable marks a model call that failed after its retry budget.
// Callers match it with errors.Is.
var ErrUnavailable = errors.New("llm unavailable")

// IsUnavailable reports whether err is an exhausted-retries model failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
