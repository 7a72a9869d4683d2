package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedSource(t *testing.T) {
	src := FixedSource{Value: 0.25}
	for i := 0; i < 3; i++ {
		assert.Equal(t, 0.25, src.Float64())
	}
}

func TestSequenceSourceRepeatsLastValue(t *testing.T) {
	src := NewSequenceSource(0.1, 0.2, 0.3)

	assert.Equal(t, 0.1, src.Float64())
	assert.Equal(t, 0.2, src.Float64())
	assert.Equal(t, 0.3, src.Float64())
	assert.Equal(t, 0.3, src.Float64(), "script exhausts to its last value")

	src.Reset()
	assert.Equal(t, 0.1, src.Float64())
}

func TestSequenceSourceEmptyPanics(t *testing.T) {
	assert.Panics(t, func() { NewSequenceSource() })
}
