package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/syndata/syndata/internal/llm"
	"github.com/syndata/syndata/internal/sample"
	"github.com/syndata/syndata/internal/schema"
)

// llmSystemPrompt is the fixed instruction sent with every llm_prompt rule.
// The model is asked for the bare value; everything else is noise the
// executor would have to strip.
const llmSystemPrompt = "You generate a single synthetic data value. " +
	"Return only the value, with no explanation, labels, or formatting."

// Default sampling parameters for llm_prompt rules that omit them.
const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 2000
)

// Executor runs one generation rule against one field.
//
// Outcomes are three-valued:
//
//	(value, nil)  - the rule produced a value
//	(nil, nil)    - the rule could not produce one (unknown generator or
//	                distribution name); logged, never fatal
//	(nil, err)    - the rule failed (LLM error, unknown rule type);
//	                the caller decides severity
type Executor struct {
	src    sample.Source
	llm    llm.Client
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	counters map[string]int64
}

// NewExecutor creates an executor drawing randomness from src and sending
// llm_prompt rules to client. client may be nil when the schema has no
// llm_prompt rules; executing one then fails like an unavailable model.
func NewExecutor(src sample.Source, client llm.Client) *Executor {
	return &Executor{
		src:      src,
		llm:      client,
		logger:   slog.Default().With("component", "executor"),
		now:      time.Now,
		counters: make(map[string]int64),
	}
}

// Execute runs rule against field. recordCtx is the accumulated
// field-to-value map for the component being built, which lets prompt
// templates and input references see sibling values.
func (e *Executor) Execute(ctx context.Context, rule schema.GenerationRule, field string, recordCtx map[string]any) (any, error) {
	switch rule.RuleType {
	case schema.RuleDeterministic:
		return e.executeDeterministic(rule, field), nil

	case schema.RuleStatistical:
		return e.executeStatistical(rule), nil

	case schema.RuleLLMPrompt:
		return e.executeLLMPrompt(ctx, rule, recordCtx)

	default:
		return nil, &UnknownRuleTypeError{RuleID: rule.RuleID, RuleType: string(rule.RuleType)}
	}
}

func (e *Executor) executeDeterministic(rule schema.GenerationRule, field string) any {
	fn, ok := generators[rule.GeneratorName]
	if !ok {
		e.logger.Warn("unknown generator name, rule produces no value",
			"rule_id", rule.RuleID,
			"generator", rule.GeneratorName,
		)
		return nil
	}
	env := genEnv{src: e.src, field: field, next: e.nextSeq, now: e.now}
	return fn(env, rule.Parameters)
}

func (e *Executor) executeStatistical(rule schema.GenerationRule) any {
	p := rule.DistributionParams

	switch rule.Distribution {
	case "normal":
		return sample.Normal(e.src, distParam(p, "mean", 0), distParam(p, "stddev", 1))
	case "uniform":
		return sample.Uniform(e.src, distParam(p, "min", 0), distParam(p, "max", 1))
	case "lognormal", "log_normal":
		return sample.LogNormal(e.src, distParam(p, "mu", 0), distParam(p, "sigma", 1))
	case "exponential":
		return sample.Exponential(e.src, distParam(p, "lambda", 1))
	case "poisson":
		return sample.Poisson(e.src, distParam(p, "lambda", 1))
	default:
		e.logger.Warn("unsupported distribution, rule produces no value",
			"rule_id", rule.RuleID,
			"distribution", rule.Distribution,
		)
		return nil
	}
}

func (e *Executor) executeLLMPrompt(ctx context.Context, rule schema.GenerationRule, recordCtx map[string]any) (any, error) {
	if e.llm == nil {
		return nil, fmt.Errorf("rule %s: %w: no model configured", rule.RuleID, llm.ErrUnavailable)
	}

	prompt := fillTemplate(rule.PromptTemplate, recordCtx)

	// Temperature is a pointer so an explicit 0 survives; only an absent
	// value falls back to the default.
	temperature := defaultTemperature
	if rule.Temperature != nil {
		temperature = *rule.Temperature
	}
	maxTokens := rule.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	out, err := e.llm.CallModel(ctx, prompt, llmSystemPrompt, temperature, maxTokens)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", rule.RuleID, err)
	}
	return strings.TrimSpace(out), nil
}

// nextSeq returns the next value of the per-field monotonic counter used
// by the sequential generator. Counters start at 1 and never reset within
// an executor's lifetime.
func (e *Executor) nextSeq(field string) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.counters[field]++
	return e.counters[field]
}

// fillTemplate substitutes {{name}} placeholders with values from the
// record context. Substitution is a global string replace per key; keys
// absent from the context leave their placeholder in place, which the
// model tolerates better than an empty splice.
func fillTemplate(template string, recordCtx map[string]any) string {
	out := template
	for key, value := range recordCtx {
		out = strings.ReplaceAll(out, "{{"+key+"}}", fmt.Sprint(value))
	}
	return out
}

func distParam(params map[string]float64, key string, fallback float64) float64 {
	if params == nil {
		return fallback
	}
	if v, ok := params[key]; ok {
		return v
	}
	return fallback
}
