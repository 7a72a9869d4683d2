package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nfdCafe is "café" with a combining acute accent (decomposed form);
// nfcCafe is the precomposed spelling.
const (
	nfdCafe = "café"
	nfcCafe = "café"
)

func TestNormalizeFlatFieldNames(t *testing.T) {
	doc := &Definition{Fields: []Field{
		{Name: "  email ", Type: TypeEmail},
		{Name: nfdCafe, Type: TypeString},
	}}

	Normalize(doc)

	assert.Equal(t, "email", doc.Fields[0].Name)
	assert.Equal(t, nfcCafe, doc.Fields[1].Name, "NFD input should compose to NFC")
}

func TestNormalizeDynamicKeys(t *testing.T) {
	doc := dynamicDoc(Component{
		ID:            " user ",
		ComponentType: " account ",
		Confidence:    0.9,
		Fields: map[string]SchemaField{
			" name ": {Type: TypeString, Confidence: 0.8},
		},
		Metadata: ComponentMetadata{CallbackReferences: []string{" other "}},
	})

	Normalize(doc)

	comp := &doc.RootStructure.Components[0]
	assert.Equal(t, "user", comp.ID)
	assert.Equal(t, "account", comp.ComponentType)
	require.Contains(t, comp.Fields, "name")
	assert.Equal(t, []string{"other"}, comp.Metadata.CallbackReferences)
}

func TestNormalizeUnifiesEquivalentKeys(t *testing.T) {
	// Composed and decomposed spellings of the same field name collapse to
	// one map entry after normalization.
	doc := dynamicDoc(Component{
		ID:            "c",
		ComponentType: "c",
		Confidence:    0.9,
		Fields: map[string]SchemaField{
			nfdCafe: {Type: TypeString, Confidence: 0.8},
			nfcCafe: {Type: TypeString, Confidence: 0.7},
		},
	})

	Normalize(doc)

	fields := doc.RootStructure.Components[0].Fields
	assert.Len(t, fields, 1)
	assert.Contains(t, fields, nfcCafe)
}
