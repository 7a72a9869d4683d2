package llm

import (
	"context"
	"fmt"
	"log/slog"
)

// maxRetries is the retry budget for a failed model call: exactly one
// retry, two attempts total. The budget is deliberately uniform across
// call sites; severity differences belong to the caller, not this layer.
const maxRetries = 1

// retryClient decorates a Client with the single-retry policy. A call
// that fails both attempts is surfaced wrapped in ErrUnavailable.
type retryClient struct {
	inner  Client
	logger *slog.Logger
}

// WithRetry wraps a client so every CallModel failure is retried once
// before being reported as ErrUnavailable.
func WithRetry(inner Client) Client {
	return &retryClient{
		inner:  inner,
		logger: slog.Default().With("component", "llm-retry"),
	}
}

func (r *retryClient) Name() string { return r.inner.Name() }

func (r *retryClient) CallModel(ctx context.Context, prompt, systemPrompt string, temperature float64, maxTokens int) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
		}

		out, err := r.inner.CallModel(ctx, prompt, systemPrompt, temperature, maxTokens)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if attempt < maxRetries {
			r.logger.Warn("model call failed, retrying",
				"model", r.inner.Name(),
				"attempt", attempt+1,
				"error", err,
			)
		}
	}

	return "", fmt.Errorf("%w: failed after %d attempts: %w", ErrUnavailable, maxRetries+1, lastErr)
}
