package schema

// FieldType enumerates the primitive types a field may declare.
//
// Flat schemas accept only the five core primitives. Dynamic (AI-authored)
// schemas additionally allow "enum" and "reference" fields, matching the
// shapes the upstream schema author emits.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeDate    FieldType = "date"
	TypeBoolean FieldType = "boolean"
	TypeEmail   FieldType = "email"
	TypeEnum    FieldType = "enum"
	TypeRef     FieldType = "reference"
)

// FlatTypes lists the types permitted in a flat schema, in a fixed order.
var FlatTypes = []FieldType{TypeString, TypeNumber, TypeDate, TypeBoolean, TypeEmail}

// IsFlatType reports whether t is one of the five flat-schema primitives.
func IsFlatType(t FieldType) bool {
	for _, ft := range FlatTypes {
		if t == ft {
			return true
		}
	}
	return false
}

// RuleType enumerates the three kinds of generation rule.
type RuleType string

const (
	RuleDeterministic RuleType = "deterministic"
	RuleStatistical   RuleType = "statistical"
	RuleLLMPrompt     RuleType = "llm_prompt"
)

// Constraints restricts the values a field may take.
//
// Every present constraint must hold (AND semantics); an absent constraint
// leaves that dimension unconstrained. AllowedValues and Enum are synonyms;
// documents from different authors use either key.
type Constraints struct {
	MinLength     *int     `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength     *int     `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Pattern       string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Min           *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max           *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Enum          []string `json:"enum,omitempty" yaml:"enum,omitempty"`
	AllowedValues []string `json:"allowedValues,omitempty" yaml:"allowedValues,omitempty"`
	Distribution  string   `json:"distribution,omitempty" yaml:"distribution,omitempty"`
}

// Field is a single column of a flat schema.
type Field struct {
	Name        string       `json:"name" yaml:"name"`
	Type        FieldType    `json:"type" yaml:"type"`
	Constraints *Constraints `json:"constraints,omitempty" yaml:"constraints,omitempty"`
}

// SchemaField is a field inside a dynamic-schema component.
//
// Confidence expresses how certain the schema author was that this field
// belongs in the component. It gates generation; it is not a probability
// of correctness to the consumer.
type SchemaField struct {
	Type        FieldType    `json:"type" yaml:"type"`
	Confidence  float64      `json:"confidence" yaml:"confidence"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Constraints *Constraints `json:"constraints,omitempty" yaml:"constraints,omitempty"`
}

// GenerationRule specifies how one or more fields obtain their values.
//
// Outputs names the fields this rule may populate. Priority orders rule
// selection (higher first); Confidence gates probabilistic execution.
type GenerationRule struct {
	RuleID             string             `json:"ruleId" yaml:"ruleId"`
	RuleType           RuleType           `json:"ruleType" yaml:"ruleType"`
	Confidence         float64            `json:"confidence" yaml:"confidence"`
	Priority           int                `json:"priority" yaml:"priority"`
	Inputs             []string           `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs            []string           `json:"outputs" yaml:"outputs"`
	GeneratorName      string             `json:"generatorName,omitempty" yaml:"generatorName,omitempty"`
	Parameters         map[string]any     `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Distribution       string             `json:"distribution,omitempty" yaml:"distribution,omitempty"`
	DistributionParams map[string]float64 `json:"distributionParams,omitempty" yaml:"distributionParams,omitempty"`
	Correlations       []string           `json:"correlations,omitempty" yaml:"correlations,omitempty"`
	PromptTemplate     string             `json:"promptTemplate,omitempty" yaml:"promptTemplate,omitempty"`
	Model              string             `json:"model,omitempty" yaml:"model,omitempty"`
	Temperature        *float64           `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens          int                `json:"maxTokens,omitempty" yaml:"maxTokens,omitempty"`
}

// ComponentMetadata carries ordering, reference, and rule information for
// a component.
//
// CallbackReferences must name existing component IDs, and the directed
// graph they form must be acyclic. Both invariants are enforced by Validate.
type ComponentMetadata struct {
	Position           int              `json:"position" yaml:"position"`
	Required           bool             `json:"required" yaml:"required"`
	CallbackReferences []string         `json:"callbackReferences,omitempty" yaml:"callbackReferences,omitempty"`
	DependsOn          []string         `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
	GenerationRules    []GenerationRule `json:"generationRules,omitempty" yaml:"generationRules,omitempty"`
}

// Component is a named, confidence-scored group of fields within a dynamic
// schema, analogous to a sub-record or nested object.
//
// INVARIANT: IDs are unique within a document (enforced by Validate).
type Component struct {
	ID            string                 `json:"id" yaml:"id"`
	ComponentType string                 `json:"componentType" yaml:"componentType"`
	Description   string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Confidence    float64                `json:"confidence" yaml:"confidence"`
	IsArray       bool                   `json:"isArray" yaml:"isArray"`
	Fields        map[string]SchemaField `json:"fields" yaml:"fields"`
	Metadata      ComponentMetadata      `json:"metadata" yaml:"metadata"`
}

// RootStructure is the top-level composite of a dynamic schema.
type RootStructure struct {
	Type           string      `json:"type" yaml:"type"`
	ComponentCount int         `json:"componentCount" yaml:"componentCount"`
	Components     []Component `json:"components" yaml:"components"`
}

// Metadata describes the provenance of a dynamic schema document.
type Metadata struct {
	Name               string  `json:"name" yaml:"name"`
	Description        string  `json:"description,omitempty" yaml:"description,omitempty"`
	DatasetType        string  `json:"datasetType,omitempty" yaml:"datasetType,omitempty"`
	LLMModel           string  `json:"llmModel,omitempty" yaml:"llmModel,omitempty"`
	ConversationTurns  int     `json:"conversationTurns,omitempty" yaml:"conversationTurns,omitempty"`
	OverallConfidence  float64 `json:"overallConfidence" yaml:"overallConfidence"`
	CreatedAt          string  `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	ConversionDuration float64 `json:"conversionDuration,omitempty" yaml:"conversionDuration,omitempty"`
}

// Definition is a schema document in either of its two shapes.
//
// A flat schema populates Fields; a dynamic schema populates SchemaMetadata
// and RootStructure. Exactly one shape should be present; IsDynamic
// distinguishes them.
type Definition struct {
	// Flat shape.
	Fields []Field `json:"fields,omitempty" yaml:"fields,omitempty"`

	// Dynamic shape.
	SchemaMetadata *Metadata      `json:"schemaMetadata,omitempty" yaml:"schemaMetadata,omitempty"`
	PrimitiveTypes []string       `json:"primitiveTypes,omitempty" yaml:"primitiveTypes,omitempty"`
	RootStructure  *RootStructure `json:"rootStructure,omitempty" yaml:"rootStructure,omitempty"`
}

// IsDynamic reports whether the definition is an AI-authored hierarchical
// schema rather than a flat field list.
func (d *Definition) IsDynamic() bool {
	return d.RootStructure != nil
}

// Component returns the component with the given ID, or nil.
func (r *RootStructure) Component(id string) *Component {
	for i := range r.Components {
		if r.Components[i].ID == id {
			return &r.Components[i]
		}
	}
	return nil
}

// FlatRule is a per-field override used by flat-mode generation.
//
// Precedence when generating: Value (literal) > Generate="sequential" >
// Generate="from_pattern" > Distribution. See engine.GenerateFlat.
type FlatRule struct {
	Generate     string             `json:"generate,omitempty" yaml:"generate,omitempty"`
	Value        any                `json:"value,omitempty" yaml:"value,omitempty"`
	Distribution map[string]float64 `json:"distribution,omitempty" yaml:"distribution,omitempty"`
}

// FlatRules maps field names to their overrides.
type FlatRules map[string]FlatRule
