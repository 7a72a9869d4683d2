package sample

import (
	"math"
	"sort"
)

// Distribution summarizes an observed numeric sample. It is the empirical
// counterpart to the parameters a statistical rule declares: analyze real
// values once, then feed mean/stddev back into a distribution rule.
type Distribution struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Stddev float64 `json:"stddev"`
	Q1     float64 `json:"q1"`
	Q3     float64 `json:"q3"`
	Count  int     `json:"count"`
}

// Analyze computes summary statistics for a numeric sample. Returns nil
// for an empty sample.
func Analyze(values []float64) *Distribution {
	if len(values) == 0 {
		return nil
	}

	sorted := append([]float64{}, values...)
	sort.Float64s(sorted)
	n := len(sorted)

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(n)

	return &Distribution{
		Min:    sorted[0],
		Max:    sorted[n-1],
		Mean:   round2(mean),
		Median: sorted[n/2],
		Stddev: round2(math.Sqrt(variance)),
		Q1:     sorted[n/4],
		Q3:     sorted[(n*3)/4],
		Count:  n,
	}
}

// StringProfile summarizes the lengths of an observed string sample, with
// a few raw samples retained for inspection.
type StringProfile struct {
	MinLength    int           `json:"minLength"`
	MaxLength    int           `json:"maxLength"`
	AvgLength    float64       `json:"avgLength"`
	Distribution *Distribution `json:"distribution,omitempty"`
	Samples      []string      `json:"samples,omitempty"`
}

// AnalyzeStrings profiles string lengths. Returns nil for an empty sample.
func AnalyzeStrings(values []string) *StringProfile {
	if len(values) == 0 {
		return nil
	}

	lengths := make([]float64, len(values))
	minLen, maxLen, total := len(values[0]), len(values[0]), 0
	for i, v := range values {
		l := len(v)
		lengths[i] = float64(l)
		if l < minLen {
			minLen = l
		}
		if l > maxLen {
			maxLen = l
		}
		total += l
	}

	samples := values
	if len(samples) > 5 {
		samples = samples[:5]
	}

	return &StringProfile{
		MinLength:    minLen,
		MaxLength:    maxLen,
		AvgLength:    round2(float64(total) / float64(len(values))),
		Distribution: Analyze(lengths),
		Samples:      append([]string{}, samples...),
	}
}

// Relationship records that two fields are non-null together in more than
// threshold percent of observed records.
type Relationship struct {
	From        string  `json:"from"`
	To          string  `json:"to"`
	Correlation float64 `json:"correlation"`
}

// DetectRelationships finds field pairs that co-occur (both non-nil) in
// more than 75% of records. Needs at least two records to say anything.
func DetectRelationships(records []map[string]any, fields []string) []Relationship {
	if len(records) < 2 {
		return nil
	}

	var rels []Relationship
	for _, a := range fields {
		for _, b := range fields {
			if a == b {
				continue
			}
			coOccur := 0
			for _, r := range records {
				if r[a] != nil && r[b] != nil {
					coOccur++
				}
			}
			correlation := float64(coOccur) / float64(len(records)) * 100
			if correlation > 75 {
				rels = append(rels, Relationship{From: a, To: b, Correlation: round2(correlation)})
			}
		}
	}
	return rels
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
