package engine

import (
	"errors"
	"fmt"
)

// UnknownRuleTypeError marks a generation rule whose ruleType matches none
// of deterministic, statistical, or llm_prompt.
//
// Unknown generator and distribution names are softer failures: the rule
// simply produces no value and the candidate loop moves on. An unknown rule
// type is a schema defect worth surfacing to the caller.
type UnknownRuleTypeError struct {
	RuleID   string
	RuleType string
}

func (e *UnknownRuleTypeError) Error() string {
	return fmt.Sprintf("rule %s: unknown rule type %q", e.RuleID, e.RuleType)
}

// IsUnknownRuleType reports whether err wraps an UnknownRuleTypeError.
func IsUnknownRuleType(err error) bool {
	var ue *UnknownRuleTypeError
	return errors.As(err, &ue)
}
