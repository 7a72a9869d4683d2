package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syndata/syndata/internal/llm"
	"github.com/syndata/syndata/internal/sample"
	"github.com/syndata/syndata/internal/schema"
	"github.com/syndata/syndata/internal/testutil"
)

func detRule(generator string, params map[string]any) schema.GenerationRule {
	return schema.GenerationRule{
		RuleID:        "r-det",
		RuleType:      schema.RuleDeterministic,
		Confidence:    0.9,
		Outputs:       []string{"out"},
		GeneratorName: generator,
		Parameters:    params,
	}
}

func TestExecuteDeterministicConstant(t *testing.T) {
	exec := NewExecutor(testutil.FixedSource{Value: 0.5}, nil)

	value, err := exec.Execute(context.Background(), detRule("constant", map[string]any{"value": "X"}), "out", nil)
	require.NoError(t, err)
	assert.Equal(t, "X", value)
}

func TestExecuteDeterministicRegistry(t *testing.T) {
	exec := NewExecutor(sample.NewSource(1, 1), nil)

	tests := []struct {
		generator string
		check     func(t *testing.T, v any)
	}{
		{"email", func(t *testing.T, v any) {
			assert.Contains(t, v.(string), "@")
		}},
		{"full_name", func(t *testing.T, v any) {
			assert.Contains(t, v.(string), " ")
		}},
		{"uuid", func(t *testing.T, v any) {
			assert.Len(t, v.(string), 36)
		}},
		{"boolean", func(t *testing.T, v any) {
			_, ok := v.(bool)
			assert.True(t, ok)
		}},
		{"word", func(t *testing.T, v any) {
			assert.NotEmpty(t, v.(string))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.generator, func(t *testing.T) {
			value, err := exec.Execute(context.Background(), detRule(tt.generator, nil), "out", nil)
			require.NoError(t, err)
			require.NotNil(t, value)
			tt.check(t, value)
		})
	}
}

func TestExecuteDeterministicIntegerBounds(t *testing.T) {
	exec := NewExecutor(sample.NewSource(2, 2), nil)
	rule := detRule("integer", map[string]any{"min": 10, "max": 20})

	for i := 0; i < 200; i++ {
		value, err := exec.Execute(context.Background(), rule, "out", nil)
		require.NoError(t, err)
		n := value.(int)
		assert.GreaterOrEqual(t, n, 10)
		assert.LessOrEqual(t, n, 20)
	}
}

func TestExecuteDeterministicEnum(t *testing.T) {
	exec := NewExecutor(testutil.FixedSource{Value: 0}, nil)

	value, err := exec.Execute(context.Background(),
		detRule("enum", map[string]any{"values": []any{"a", "b"}}), "out", nil)
	require.NoError(t, err)
	assert.Equal(t, "a", value)

	// Missing values list: no value, no error.
	value, err = exec.Execute(context.Background(), detRule("enum", nil), "out", nil)
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestExecuteUnknownGeneratorIsNilNotError(t *testing.T) {
	exec := NewExecutor(testutil.FixedSource{Value: 0.5}, nil)

	value, err := exec.Execute(context.Background(), detRule("teleport", nil), "out", nil)
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestExecuteSequentialCountersPerField(t *testing.T) {
	exec := NewExecutor(testutil.FixedSource{Value: 0.5}, nil)
	rule := detRule("sequential", nil)

	for want := int64(1); want <= 3; want++ {
		value, err := exec.Execute(context.Background(), rule, "id", nil)
		require.NoError(t, err)
		assert.Equal(t, want, value)
	}

	// A different field gets its own counter.
	value, err := exec.Execute(context.Background(), rule, "other", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), value)
}

func statRule(dist string, params map[string]float64) schema.GenerationRule {
	return schema.GenerationRule{
		RuleID:             "r-stat",
		RuleType:           schema.RuleStatistical,
		Confidence:         0.9,
		Outputs:            []string{"out"},
		Distribution:       dist,
		DistributionParams: params,
	}
}

func TestExecuteStatistical(t *testing.T) {
	exec := NewExecutor(testutil.FixedSource{Value: 0.5}, nil)

	value, err := exec.Execute(context.Background(),
		statRule("uniform", map[string]float64{"min": 10, "max": 20}), "out", nil)
	require.NoError(t, err)
	assert.InEpsilon(t, 15.0, value.(float64), 1e-12)

	value, err = exec.Execute(context.Background(), statRule("normal", nil), "out", nil)
	require.NoError(t, err)
	_, ok := value.(float64)
	assert.True(t, ok)

	value, err = exec.Execute(context.Background(), statRule("poisson", map[string]float64{"lambda": 2}), "out", nil)
	require.NoError(t, err)
	_, ok = value.(int)
	assert.True(t, ok)

	// log_normal is accepted as an alias for lognormal.
	value, err = exec.Execute(context.Background(), statRule("log_normal", nil), "out", nil)
	require.NoError(t, err)
	assert.Greater(t, value.(float64), 0.0)
}

func TestExecuteUnsupportedDistributionIsNilNotError(t *testing.T) {
	exec := NewExecutor(testutil.FixedSource{Value: 0.5}, nil)

	value, err := exec.Execute(context.Background(), statRule("cauchy", nil), "out", nil)
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestExecuteUnknownRuleTypeIsError(t *testing.T) {
	exec := NewExecutor(testutil.FixedSource{Value: 0.5}, nil)

	rule := schema.GenerationRule{RuleID: "r-x", RuleType: "quantum", Outputs: []string{"out"}}
	value, err := exec.Execute(context.Background(), rule, "out", nil)

	assert.Nil(t, value)
	require.Error(t, err)
	assert.True(t, IsUnknownRuleType(err))

	var typed *UnknownRuleTypeError
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, "r-x", typed.RuleID)
	assert.Equal(t, "quantum", typed.RuleType)
}

func llmRule(template string) schema.GenerationRule {
	return schema.GenerationRule{
		RuleID:         "r-llm",
		RuleType:       schema.RuleLLMPrompt,
		Confidence:     0.9,
		Outputs:        []string{"out"},
		PromptTemplate: template,
	}
}

func TestExecuteLLMPrompt(t *testing.T) {
	fake := &llm.Fake{Responses: []string{"  Lisbon \n"}}
	exec := NewExecutor(testutil.FixedSource{Value: 0.5}, fake)

	value, err := exec.Execute(context.Background(),
		llmRule("a city in {{country}}"), "out", map[string]any{"country": "Portugal"})

	require.NoError(t, err)
	assert.Equal(t, "Lisbon", value, "model output is trimmed")
	require.Len(t, fake.Prompts(), 1)
	assert.Equal(t, "a city in Portugal", fake.Prompts()[0], "template placeholders are filled")
}

func TestExecuteLLMPromptTemperature(t *testing.T) {
	// An explicit temperature of 0 is honored; only an absent one falls
	// back to the default.
	zero := 0.0
	rule := llmRule("p")
	rule.Temperature = &zero

	fake := &llm.Fake{Responses: []string{"x"}}
	exec := NewExecutor(testutil.FixedSource{Value: 0.5}, fake)

	_, err := exec.Execute(context.Background(), rule, "out", nil)
	require.NoError(t, err)

	_, err = exec.Execute(context.Background(), llmRule("p"), "out", nil)
	require.NoError(t, err)

	temps := fake.Temperatures()
	require.Len(t, temps, 2)
	assert.Equal(t, 0.0, temps[0], "explicit zero requests deterministic sampling")
	assert.Equal(t, 0.7, temps[1], "unset temperature uses the default")
}

func TestExecuteLLMPromptUnfilledPlaceholderStays(t *testing.T) {
	fake := &llm.Fake{Responses: []string{"x"}}
	exec := NewExecutor(testutil.FixedSource{Value: 0.5}, fake)

	_, err := exec.Execute(context.Background(), llmRule("value of {{missing}}"), "out", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "value of {{missing}}", fake.Prompts()[0])
}

func TestExecuteLLMPromptNoClient(t *testing.T) {
	exec := NewExecutor(testutil.FixedSource{Value: 0.5}, nil)

	value, err := exec.Execute(context.Background(), llmRule("prompt"), "out", nil)
	assert.Nil(t, value)
	require.Error(t, err)
	assert.True(t, llm.IsUnavailable(err))
}

func TestExecuteLLMPromptWithRetryRecovers(t *testing.T) {
	fake := &llm.Fake{
		Responses: []string{"ok"},
		Err:       errors.New("transient"),
		FailFirst: 1,
	}
	exec := NewExecutor(testutil.FixedSource{Value: 0.5}, llm.WithRetry(fake))

	value, err := exec.Execute(context.Background(), llmRule("p"), "out", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", value)
	assert.Equal(t, 2, fake.Calls())
}

func TestExecuteLLMPromptExhaustedRetries(t *testing.T) {
	fake := &llm.Fake{Err: errors.New("down"), FailFirst: 10}
	exec := NewExecutor(testutil.FixedSource{Value: 0.5}, llm.WithRetry(fake))

	value, err := exec.Execute(context.Background(), llmRule("p"), "out", nil)
	assert.Nil(t, value)
	require.Error(t, err)
	assert.True(t, llm.IsUnavailable(err))
	assert.Equal(t, 2, fake.Calls())
}
