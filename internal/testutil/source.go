// Package testutil provides deterministic random sources for tests.
package testutil

import "sync"

// FixedSource always returns the same value from Float64.
//
// A value of 0 makes every probabilistic gate pass (draws are compared
// with u > confidence); a value just below 1 makes every gate fail.
type FixedSource struct {
	Value float64
}

func (s FixedSource) Float64() float64 { return s.Value }

// SequenceSource replays a scripted series of draws, then repeats the
// last value. Thread-safe so it can back an engine shared across
// goroutines in a test.
type SequenceSource struct {
	mu     sync.Mutex
	values []float64
	pos    int
}

// NewSequenceSource creates a source that returns the given values in
// order. Panics on an empty script; a test that draws nothing should not
// construct one.
func NewSequenceSource(values ...float64) *SequenceSource {
	if len(values) == 0 {
		panic("testutil: SequenceSource needs at least one value")
	}
	return &SequenceSource{values: values}
}

func (s *SequenceSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.values[s.pos]
	if s.pos < len(s.values)-1 {
		s.pos++
	}
	return v
}

// Reset rewinds the script so a scenario can be replayed.
func (s *SequenceSource) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos = 0
}
