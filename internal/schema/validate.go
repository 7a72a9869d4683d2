package schema

import (
	"fmt"
	"strings"
)

// ValidationResult is the outcome of schema validation.
//
// Errors make the schema unusable for generation. Warnings flag suspicious
// but workable constructs (unknown rule inputs, latency hazards) and never
// affect Valid.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Validate checks a schema document for structural and semantic coherence.
//
// It accumulates problems instead of failing fast so a caller can report
// every defect in one pass. Checks, in order:
//
//   - required sections present (schemaMetadata, rootStructure)
//   - every confidence value in [0,1] (schema, component, field, rule)
//   - callbackReferences name declared component IDs
//   - the component reference graph is acyclic
//   - rule types are recognized (warning; unknown rules are skipped at
//     generation time)
//   - rule inputs of the form "component.field" name known fields (warning)
//   - llm_prompt rules make up at most half of all rules (warning)
//
// Flat documents are delegated to ValidateFlat.
func Validate(doc *Definition) ValidationResult {
	if doc != nil && !doc.IsDynamic() {
		return ValidateFlat(doc)
	}

	v := &validator{}
	v.validateDocument(doc)
	return v.result()
}

// validator accumulates errors and warnings during traversal.
type validator struct {
	errors   []string
	warnings []string
}

func (v *validator) errorf(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) warnf(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) result() ValidationResult {
	r := ValidationResult{
		Valid:    len(v.errors) == 0,
		Errors:   v.errors,
		Warnings: v.warnings,
	}
	// Empty slices instead of nil so JSON output is stable.
	if r.Errors == nil {
		r.Errors = []string{}
	}
	if r.Warnings == nil {
		r.Warnings = []string{}
	}
	return r
}

func (v *validator) validateDocument(doc *Definition) {
	if doc == nil {
		v.errorf("missing schema document")
		return
	}
	if doc.SchemaMetadata == nil {
		v.errorf("missing schemaMetadata")
		return
	}
	if doc.RootStructure == nil {
		v.errorf("missing rootStructure")
		return
	}

	if !inUnitRange(doc.SchemaMetadata.OverallConfidence) {
		v.errorf("overall confidence must be between 0 and 1, got %v", doc.SchemaMetadata.OverallConfidence)
	}

	root := doc.RootStructure
	if root.Components == nil {
		v.errorf("rootStructure.components must be an array")
		return
	}

	ids := make(map[string]bool, len(root.Components))
	for _, comp := range root.Components {
		if comp.ID == "" {
			v.errorf("component with empty id")
			continue
		}
		if ids[comp.ID] {
			v.errorf("duplicate component id %q", comp.ID)
		}
		ids[comp.ID] = true
	}

	for i := range root.Components {
		v.validateComponent(&root.Components[i], ids)
	}

	if path := findCycle(root.Components); path != nil {
		v.errorf("circular dependency detected in component references: %s",
			strings.Join(path, " -> "))
	}

	v.checkLLMRuleRatio(root.Components)
}

func (v *validator) validateComponent(comp *Component, ids map[string]bool) {
	if !inUnitRange(comp.Confidence) {
		v.errorf("component %s: confidence must be 0-1, got %v", comp.ID, comp.Confidence)
	}

	for name, field := range comp.Fields {
		if !inUnitRange(field.Confidence) {
			v.errorf("component %s, field %s: confidence must be 0-1, got %v",
				comp.ID, name, field.Confidence)
		}
	}

	for _, ref := range comp.Metadata.CallbackReferences {
		if !ids[ref] {
			v.errorf("component %s: references non-existent component %s", comp.ID, ref)
		}
	}

	for _, rule := range comp.Metadata.GenerationRules {
		v.validateRule(comp, rule)
	}
}

func (v *validator) validateRule(comp *Component, rule GenerationRule) {
	if !inUnitRange(rule.Confidence) {
		v.errorf("component %s, rule %s: confidence must be 0-1, got %v",
			comp.ID, rule.RuleID, rule.Confidence)
	}

	// An unknown rule type is survivable: the executor treats it as a rule
	// that produced no value and the next candidate runs. Warn so the author
	// sees the typo, but the schema stays valid.
	switch rule.RuleType {
	case RuleDeterministic, RuleStatistical, RuleLLMPrompt:
	default:
		v.warnf("component %s, rule %s: unknown rule type %q",
			comp.ID, rule.RuleID, rule.RuleType)
	}

	// Inputs use "component.field" form; an unknown field is a warning, not
	// an error - the rule simply won't find the sibling value at runtime.
	for _, input := range rule.Inputs {
		_, fieldRef, found := strings.Cut(input, ".")
		if !found || fieldRef == "" {
			continue
		}
		if _, ok := comp.Fields[fieldRef]; !ok {
			v.warnf("component %s, rule %s: input references unknown field %s",
				comp.ID, rule.RuleID, fieldRef)
		}
	}

	// Outputs must name at least one field or the rule can never fire.
	if len(rule.Outputs) == 0 {
		v.warnf("component %s, rule %s: rule has no outputs and will never fire",
			comp.ID, rule.RuleID)
	}
}

// checkLLMRuleRatio warns when more than half of all generation rules call
// out to the LLM. Each llm_prompt rule can block for seconds, so a schema
// dominated by them generates very slowly.
func (v *validator) checkLLMRuleRatio(components []Component) {
	var llmRules, totalRules int
	for _, comp := range components {
		for _, rule := range comp.Metadata.GenerationRules {
			totalRules++
			if rule.RuleType == RuleLLMPrompt {
				llmRules++
			}
		}
	}
	if totalRules > 0 && float64(llmRules)/float64(totalRules) > 0.5 {
		v.warnf("high number of LLM rules (%d/%d): generation may be slow",
			llmRules, totalRules)
	}
}

// findCycle detects a cycle in the directed graph of component
// callbackReferences using depth-first traversal with a recursion stack.
//
// A back-edge to a node currently on the stack is a cycle. A node reached
// again via a different path but no longer on the stack (diamond reference)
// is not. Returns one witness path ending at the repeated node, or nil when
// the graph is acyclic. Dangling references are skipped here; they are
// reported separately as reference errors.
func findCycle(components []Component) []string {
	byID := make(map[string]*Component, len(components))
	for i := range components {
		byID[components[i].ID] = &components[i]
	}

	visited := make(map[string]bool, len(components))
	onStack := make(map[string]bool, len(components))
	var stack []string

	var visit func(id string) []string
	visit = func(id string) []string {
		visited[id] = true
		onStack[id] = true
		stack = append(stack, id)

		comp := byID[id]
		if comp != nil {
			for _, ref := range comp.Metadata.CallbackReferences {
				if _, exists := byID[ref]; !exists {
					continue
				}
				if !visited[ref] {
					if path := visit(ref); path != nil {
						return path
					}
				} else if onStack[ref] {
					// Back-edge: slice the witness path out of the stack.
					start := 0
					for i, n := range stack {
						if n == ref {
							start = i
							break
						}
					}
					path := append([]string{}, stack[start:]...)
					return append(path, ref)
				}
			}
		}

		onStack[id] = false
		stack = stack[:len(stack)-1]
		return nil
	}

	for i := range components {
		if !visited[components[i].ID] {
			if path := visit(components[i].ID); path != nil {
				return path
			}
		}
	}
	return nil
}

// ValidateFlat checks a flat schema: a non-empty fields array where every
// field has a name and one of the five core primitive types.
func ValidateFlat(doc *Definition) ValidationResult {
	v := &validator{}

	if doc == nil || doc.Fields == nil {
		v.errorf("schema must contain fields array")
		return v.result()
	}

	for i, field := range doc.Fields {
		if field.Name == "" || field.Type == "" {
			v.errorf("field at index %d must have name and type", i)
			continue
		}
		if !IsFlatType(field.Type) {
			v.errorf("field %s has invalid type: %s", field.Name, field.Type)
		}
	}

	return v.result()
}

// ValidateFlatRules cross-checks per-field rule overrides against a flat
// schema. A rule keyed by a field the schema does not declare is an error:
// it would silently never apply.
func ValidateFlatRules(rules FlatRules, doc *Definition) ValidationResult {
	v := &validator{}

	known := make(map[string]bool, len(doc.Fields))
	for _, f := range doc.Fields {
		known[f.Name] = true
	}

	for name := range rules {
		if !known[name] {
			v.errorf("rule for unknown field: %s", name)
		}
	}

	return v.result()
}

func inUnitRange(f float64) bool {
	return f >= 0 && f <= 1
}
