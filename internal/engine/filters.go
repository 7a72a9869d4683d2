package engine

// Default confidence thresholds for the dynamic-mode cascade.
const (
	DefaultMinComponentConfidence = 0.6
	DefaultMinRuleConfidence      = 0.5
	DefaultMinFieldConfidence     = 0.4
)

// Filters are the confidence thresholds applied while generating a dynamic
// record. Schema elements below their threshold are skipped, not errors.
type Filters struct {
	MinComponentConfidence float64 `json:"minComponentConfidence"`
	MinRuleConfidence      float64 `json:"minRuleConfidence"`
	MinFieldConfidence     float64 `json:"minFieldConfidence"`
}

// DefaultFilters returns the standard thresholds.
func DefaultFilters() Filters {
	return Filters{
		MinComponentConfidence: DefaultMinComponentConfidence,
		MinRuleConfidence:      DefaultMinRuleConfidence,
		MinFieldConfidence:     DefaultMinFieldConfidence,
	}
}
