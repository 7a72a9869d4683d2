package schema

import (
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
)

// patternCacheSize bounds the compiled-regex cache. Schemas rarely declare
// more than a handful of distinct patterns; the cache exists so per-record
// constraint checks don't recompile the same pattern thousands of times.
const patternCacheSize = 256

var patternCache, _ = lru.New[string, *regexp.Regexp](patternCacheSize)

// CheckConstraints reports whether a generated value satisfies a field's
// declared constraints.
//
// All present constraints must pass (AND semantics); an absent constraint
// leaves that dimension unconstrained. A nil constraints set accepts
// everything. No side effects beyond the shared pattern cache.
func CheckConstraints(value any, c *Constraints) bool {
	if c == nil {
		return true
	}

	if c.Min != nil || c.Max != nil {
		if n, ok := asNumber(value); ok {
			if c.Min != nil && n < *c.Min {
				return false
			}
			if c.Max != nil && n > *c.Max {
				return false
			}
		}
	}

	if s, ok := value.(string); ok {
		if c.MinLength != nil && len(s) < *c.MinLength {
			return false
		}
		if c.MaxLength != nil && len(s) > *c.MaxLength {
			return false
		}
		if c.Pattern != "" {
			re, err := compilePattern(c.Pattern)
			if err != nil || !re.MatchString(s) {
				return false
			}
		}
	}

	if allowed := c.allowed(); allowed != nil {
		s, ok := value.(string)
		if !ok {
			return false
		}
		found := false
		for _, a := range allowed {
			if a == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// allowed merges the two spellings of the membership constraint.
func (c *Constraints) allowed() []string {
	if len(c.AllowedValues) > 0 {
		return c.AllowedValues
	}
	if len(c.Enum) > 0 {
		return c.Enum
	}
	return nil
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if re, ok := patternCache.Get(pattern); ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	patternCache.Add(pattern, re)
	return re, nil
}

func asNumber(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
