package engine

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/syndata/syndata/internal/sample"
	"github.com/syndata/syndata/internal/schema"
)

// Provenance captures which source produced a field's value and with what
// confidence. Persisted as annotations for auditability.
type Provenance struct {
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
}

// Flat-mode sources and their fixed confidences.
const (
	sourceFixedRule        = "fixed_rule"
	sourceSequentialRule   = "sequential_rule"
	sourcePatternRule      = "pattern_rule"
	sourceDistributionRule = "distribution_rule"
	sourceTypeBased        = "type_based"
	sourceDefault          = "default"
)

// Result is one generated record plus its per-field provenance. Dynamic
// mode keys Sources as "componentType.field"; flat mode keys by field name.
type Result struct {
	Data        map[string]any
	IsComposite bool
	Sources     map[string]Provenance
}

// Generator orchestrates per-field and per-component generation over a
// full schema.
type Generator struct {
	exec   *Executor
	src    sample.Source
	logger *slog.Logger
}

// NewGenerator creates a record generator. src drives the probabilistic
// rule gates; the executor holds its own source for value generation (they
// may be the same source).
func NewGenerator(exec *Executor, src sample.Source) *Generator {
	return &Generator{
		exec:   exec,
		src:    src,
		logger: slog.Default().With("component", "generator"),
	}
}

// GenerateFlat produces one record from a flat schema.
//
// Per-field rule overrides apply in fixed precedence: literal value >
// sequential > pattern-based > distribution-based. Fields without an
// applicable override fall back to a type-based default generator with a
// fixed confidence.
func (g *Generator) GenerateFlat(doc *schema.Definition, rules schema.FlatRules) *Result {
	record := make(map[string]any, len(doc.Fields))
	sources := make(map[string]Provenance, len(doc.Fields))

	for _, field := range doc.Fields {
		value, prov := g.flatValue(field, rules[field.Name])
		record[field.Name] = value
		sources[field.Name] = prov
	}

	return &Result{Data: record, IsComposite: false, Sources: sources}
}

func (g *Generator) flatValue(field schema.Field, rule schema.FlatRule) (any, Provenance) {
	env := genEnv{src: g.exec.src, field: field.Name, next: g.exec.nextSeq, now: g.exec.now}

	// Literal value first: an explicit constant always wins.
	if rule.Value != nil {
		return rule.Value, Provenance{Source: sourceFixedRule, Confidence: 1.0}
	}

	if rule.Generate == "sequential" {
		return env.next(field.Name), Provenance{Source: sourceSequentialRule, Confidence: 0.99}
	}

	if rule.Generate == "from_pattern" {
		return g.patternValue(field, env), Provenance{Source: sourcePatternRule, Confidence: 0.95}
	}

	if rule.Distribution != nil {
		return g.distributionValue(field, rule.Distribution), Provenance{Source: sourceDistributionRule, Confidence: 0.9}
	}

	return g.typeValue(field, env)
}

func (g *Generator) patternValue(field schema.Field, env genEnv) any {
	switch field.Type {
	case schema.TypeEmail:
		return genEmail(env, nil)
	case schema.TypeString:
		return genWord(env, nil)
	}
	return ""
}

// distributionValue samples a numeric field from N(mean, stddev), rounded
// to an integer; non-numeric fields degrade to a boolean draw.
func (g *Generator) distributionValue(field schema.Field, params map[string]float64) any {
	if field.Type == schema.TypeNumber {
		mean, hasMean := params["mean"]
		stddev, hasStddev := params["stddev"]
		if hasMean && hasStddev {
			return int(math.Round(sample.Normal(g.exec.src, mean, stddev)))
		}
		return int(math.Floor(sample.Uniform(g.exec.src, 0, 101)))
	}
	return g.exec.src.Float64() < 0.5
}

func (g *Generator) typeValue(field schema.Field, env genEnv) (any, Provenance) {
	switch field.Type {
	case schema.TypeString:
		return genWord(env, nil), Provenance{Source: sourceTypeBased, Confidence: 0.7}
	case schema.TypeNumber:
		return genInteger(env, nil), Provenance{Source: sourceTypeBased, Confidence: 0.7}
	case schema.TypeEmail:
		return genEmail(env, nil), Provenance{Source: sourceTypeBased, Confidence: 0.8}
	case schema.TypeDate:
		return genPastDate(env, nil), Provenance{Source: sourceTypeBased, Confidence: 0.8}
	case schema.TypeBoolean:
		return genBoolean(env, nil), Provenance{Source: sourceTypeBased, Confidence: 0.9}
	default:
		return genWord(env, nil), Provenance{Source: sourceDefault, Confidence: 0.5}
	}
}

// GenerateDynamic produces one record from a dynamic schema.
//
// Components are visited in declared order. The cascade per field:
//
//  1. Component below filters.MinComponentConfidence: omitted entirely.
//  2. Field below filters.MinFieldConfidence: skipped.
//  3. Candidate rules: outputs include the field AND rule confidence is at
//     least filters.MinRuleConfidence; sorted by priority descending,
//     declaration order breaking ties.
//  4. Candidates run behind a probabilistic gate (u <= confidence). The
//     first non-nil value that satisfies the field's constraints wins. A
//     failed rule is logged and the loop moves to the next candidate; the
//     same rule is never retried within a pass.
//  5. No winning rule leaves the field absent. Not an error.
//
// Output is keyed by componentType; IsComposite is set when the schema
// declares more than one component.
func (g *Generator) GenerateDynamic(ctx context.Context, root *schema.RootStructure, filters Filters) (*Result, error) {
	data := make(map[string]any, len(root.Components))
	sources := make(map[string]Provenance)

	for i := range root.Components {
		comp := &root.Components[i]

		if comp.Confidence < filters.MinComponentConfidence {
			g.logger.Debug("component below confidence threshold, omitted",
				"component", comp.ID,
				"confidence", comp.Confidence,
				"threshold", filters.MinComponentConfidence,
			)
			continue
		}

		values, err := g.generateComponent(ctx, comp, filters, sources)
		if err != nil {
			return nil, err
		}
		data[comp.ComponentType] = values
	}

	return &Result{
		Data:        data,
		IsComposite: len(root.Components) > 1,
		Sources:     sources,
	}, nil
}

// generateComponent builds the value map for one component. Fields are
// visited in sorted name order so sibling references and output are
// deterministic for a fixed source.
func (g *Generator) generateComponent(ctx context.Context, comp *schema.Component, filters Filters, sources map[string]Provenance) (map[string]any, error) {
	values := make(map[string]any, len(comp.Fields))

	names := make([]string, 0, len(comp.Fields))
	for name := range comp.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		field := comp.Fields[name]
		if field.Confidence < filters.MinFieldConfidence {
			g.logger.Debug("field below confidence threshold, skipped",
				"component", comp.ID,
				"field", name,
				"confidence", field.Confidence,
			)
			continue
		}

		value, prov, ok := g.generateField(ctx, comp, name, field, filters, values)
		if !ok {
			continue
		}
		values[name] = value
		sources[comp.ComponentType+"."+name] = prov
	}

	return values, nil
}

// generateField runs the candidate-rule loop for one field. ok is false
// when no rule produced a usable value; the field is then absent from the
// record.
func (g *Generator) generateField(ctx context.Context, comp *schema.Component, name string, field schema.SchemaField, filters Filters, recordCtx map[string]any) (any, Provenance, bool) {
	candidates := applicableRules(comp.Metadata.GenerationRules, name, filters.MinRuleConfidence)

	for _, rule := range candidates {
		// Probabilistic gate: low-confidence rules fire less often.
		if g.src.Float64() > rule.Confidence {
			continue
		}

		value, err := g.exec.Execute(ctx, rule, name, recordCtx)
		if err != nil {
			// Failed candidates are logged and skipped, never retried in
			// this pass. LLM outages at generation time are the same case.
			g.logger.Warn("rule execution failed, trying next candidate",
				"component", comp.ID,
				"field", name,
				"rule_id", rule.RuleID,
				"error", err,
			)
			continue
		}
		if value == nil {
			continue
		}
		if !schema.CheckConstraints(value, field.Constraints) {
			g.logger.Debug("value failed field constraints, trying next candidate",
				"component", comp.ID,
				"field", name,
				"rule_id", rule.RuleID,
			)
			continue
		}

		return value, Provenance{Source: string(rule.RuleType) + ":" + rule.RuleID, Confidence: rule.Confidence}, true
	}

	return nil, Provenance{}, false
}

// applicableRules selects rules whose outputs include field and whose
// confidence clears the threshold, ordered by priority descending with
// declaration order breaking ties.
func applicableRules(rules []schema.GenerationRule, field string, minConfidence float64) []schema.GenerationRule {
	var out []schema.GenerationRule
	for _, rule := range rules {
		if rule.Confidence < minConfidence {
			continue
		}
		for _, output := range rule.Outputs {
			if output == field {
				out = append(out, rule)
				break
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out
}
