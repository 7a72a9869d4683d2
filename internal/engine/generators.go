package engine

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/syndata/syndata/internal/sample"
)

// genEnv is what a deterministic generator gets to work with: the run's
// random source, the target field name, and the per-field sequence counter.
type genEnv struct {
	src   sample.Source
	field string
	next  func(field string) int64
	now   func() time.Time
}

// generatorFunc produces one value. A nil return means the generator could
// not produce a value for these parameters.
type generatorFunc func(env genEnv, params map[string]any) any

// generators is the closed registry of deterministic generators. Dispatch
// is by name lookup; there is deliberately no fallback for unknown names.
var generators = map[string]generatorFunc{
	"email":          genEmail,
	"full_name":      genFullName,
	"first_name":     genFirstName,
	"last_name":      genLastName,
	"phone":          genPhone,
	"street_address": genStreetAddress,
	"city":           genCity,
	"country":        genCountry,
	"company":        genCompany,
	"uuid":           genUUID,
	"past_date":      genPastDate,
	"boolean":        genBoolean,
	"integer":        genInteger,
	"sequential":     genSequential,
	"enum":           genEnum,
	"constant":       genConstant,
	"word":           genWord,
}

// Small fixed corpora. Plausibility matters more than variety here; the
// statistical and LLM rule kinds carry the realism burden.
var (
	firstNames = []string{
		"Alice", "Bruno", "Carmen", "Diego", "Elena", "Felix", "Greta",
		"Hassan", "Ines", "Jonas", "Katya", "Liam", "Mira", "Noah",
		"Olga", "Pavel", "Quinn", "Rosa", "Stefan", "Tara",
	}
	lastNames = []string{
		"Almeida", "Becker", "Castro", "Dietrich", "Eriksen", "Fuentes",
		"Gruber", "Haddad", "Ivanov", "Jansen", "Keller", "Lindqvist",
		"Moreau", "Novak", "Okafor", "Petrov", "Quintana", "Rossi",
		"Schmidt", "Tanaka",
	}
	words = []string{
		"amber", "basalt", "cedar", "delta", "ember", "fjord", "garnet",
		"harbor", "indigo", "juniper", "krypton", "lagoon", "meadow",
		"nimbus", "onyx", "prairie", "quartz", "ridge", "summit", "tundra",
	}
	cities = []string{
		"Lisbon", "Oslo", "Kyoto", "Valparaiso", "Tallinn", "Marseille",
		"Cartagena", "Gdansk", "Auckland", "Windhoek", "Quebec", "Salzburg",
	}
	countries = []string{
		"Portugal", "Norway", "Japan", "Chile", "Estonia", "France",
		"Colombia", "Poland", "New Zealand", "Namibia", "Canada", "Austria",
	}
	streets = []string{
		"Oak Street", "Harbor Road", "Mill Lane", "Cedar Avenue",
		"Station Way", "Granite Boulevard", "Willow Court", "Summit Drive",
	}
	companySuffixes = []string{"Labs", "Systems", "Group", "Works", "Holdings", "Co"}
	emailDomains    = []string{"example.com", "example.org", "mail.test", "inbox.test"}
)

func pick[T any](src sample.Source, items []T) T {
	idx := int(src.Float64() * float64(len(items)))
	if idx >= len(items) {
		idx = len(items) - 1
	}
	return items[idx]
}

func genFirstName(env genEnv, _ map[string]any) any {
	return pick(env.src, firstNames)
}

func genLastName(env genEnv, _ map[string]any) any {
	return pick(env.src, lastNames)
}

func genFullName(env genEnv, _ map[string]any) any {
	return pick(env.src, firstNames) + " " + pick(env.src, lastNames)
}

func genEmail(env genEnv, _ map[string]any) any {
	first := strings.ToLower(pick(env.src, firstNames))
	last := strings.ToLower(pick(env.src, lastNames))
	return first + "." + last + "@" + pick(env.src, emailDomains)
}

func genPhone(env genEnv, _ map[string]any) any {
	var b strings.Builder
	b.WriteString("+1-")
	for i := 0; i < 10; i++ {
		if i == 3 || i == 6 {
			b.WriteByte('-')
		}
		b.WriteByte(byte('0' + int(env.src.Float64()*10)%10))
	}
	return b.String()
}

func genStreetAddress(env genEnv, _ map[string]any) any {
	number := 1 + int(env.src.Float64()*9999)
	return fmt.Sprintf("%d %s", number, pick(env.src, streets))
}

func genCity(env genEnv, _ map[string]any) any {
	return pick(env.src, cities)
}

func genCountry(env genEnv, _ map[string]any) any {
	return pick(env.src, countries)
}

func genCompany(env genEnv, _ map[string]any) any {
	return pick(env.src, words) + " " + pick(env.src, companySuffixes)
}

func genUUID(_ genEnv, _ map[string]any) any {
	return uuid.NewString()
}

// genPastDate returns an RFC 3339 timestamp up to a year in the past.
func genPastDate(env genEnv, _ map[string]any) any {
	back := time.Duration(env.src.Float64() * 365 * 24 * float64(time.Hour))
	return env.now().Add(-back).UTC().Format(time.RFC3339)
}

func genBoolean(env genEnv, _ map[string]any) any {
	return env.src.Float64() < 0.5
}

// genInteger returns a bounded integer; parameters min/max default to 0/100.
func genInteger(env genEnv, params map[string]any) any {
	min := paramFloat(params, "min", 0)
	max := paramFloat(params, "max", 100)
	if max < min {
		min, max = max, min
	}
	return int(math.Floor(sample.Uniform(env.src, min, max+1)))
}

func genSequential(env genEnv, _ map[string]any) any {
	return env.next(env.field)
}

// genEnum selects from parameters.values; nil when the list is missing or
// empty.
func genEnum(env genEnv, params map[string]any) any {
	values, ok := params["values"].([]any)
	if !ok || len(values) == 0 {
		return nil
	}
	return pick(env.src, values)
}

// genConstant returns parameters.value verbatim.
func genConstant(_ genEnv, params map[string]any) any {
	return params["value"]
}

func genWord(env genEnv, _ map[string]any) any {
	return pick(env.src, words)
}

func paramFloat(params map[string]any, key string, fallback float64) float64 {
	if params == nil {
		return fallback
	}
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return fallback
}
