package schema

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize brings an LLM-authored document into canonical form in place.
//
// Component types and field names become record keys downstream, so they are
// NFC-normalized and trimmed. Two keys that differ only in Unicode
// composition would otherwise produce distinct columns for the same field.
func Normalize(doc *Definition) {
	for i := range doc.Fields {
		doc.Fields[i].Name = normKey(doc.Fields[i].Name)
	}

	if doc.RootStructure == nil {
		return
	}

	for i := range doc.RootStructure.Components {
		comp := &doc.RootStructure.Components[i]
		comp.ID = normKey(comp.ID)
		comp.ComponentType = normKey(comp.ComponentType)

		if comp.Fields != nil {
			fields := make(map[string]SchemaField, len(comp.Fields))
			for name, f := range comp.Fields {
				fields[normKey(name)] = f
			}
			comp.Fields = fields
		}

		for j, ref := range comp.Metadata.CallbackReferences {
			comp.Metadata.CallbackReferences[j] = normKey(ref)
		}
	}
}

func normKey(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
