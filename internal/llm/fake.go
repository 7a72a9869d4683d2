package llm

import (
	"context"
	"sync"
)

// Fake is a scripted Client for tests.
//
// Responses are returned in order; once exhausted, the last entry repeats.
// FailFirst makes the first N calls fail with Err, which exercises the
// retry path deterministically.
type Fake struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	FailFirst int

	calls        int
	prompts      []string
	temperatures []float64
}

// CallModel implements Client.
func (f *Fake) CallModel(_ context.Context, prompt, _ string, temperature float64, _ int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.temperatures = append(f.temperatures, temperature)

	if f.calls <= f.FailFirst {
		return "", f.Err
	}
	if f.Err != nil && f.FailFirst == 0 {
		return "", f.Err
	}

	if len(f.Responses) == 0 {
		return "", nil
	}
	idx := f.calls - f.FailFirst - 1
	if idx >= len(f.Responses) {
		idx = len(f.Responses) - 1
	}
	return f.Responses[idx], nil
}

// Name implements Client.
func (f *Fake) Name() string { return "fake" }

// Calls returns how many times CallModel ran.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Prompts returns every prompt received, in order.
func (f *Fake) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.prompts...)
}

// Temperatures returns the temperature of every call, in order.
func (f *Fake) Temperatures() []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]float64{}, f.temperatures...)
}
