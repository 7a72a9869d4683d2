package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/syndata/syndata/internal/schema"
)

// LoadError represents an error that occurred while loading a schema
// document, carrying a stable error code for output.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error { return e.Err }

// LoadDocument reads a schema document from a JSON or YAML file, checks
// its shape, and returns the normalized definition.
//
// YAML documents are converted to JSON before the shape check so both
// encodings go through the same gate. Normalization (NFC, whitespace
// trimming on identifiers) happens after decode, before any validation a
// caller runs.
func LoadDocument(path string) (*schema.Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema file not found: %s", path)}
		}
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s", path), Err: err}
	}

	data := raw
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yamlToJSON(raw)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("parsing %s", path), Err: err}
		}
	case ".json":
		// Already JSON.
	default:
		// Unknown extension; try JSON first, fall back to YAML.
		if !json.Valid(raw) {
			data, err = yamlToJSON(raw)
			if err != nil {
				return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("parsing %s", path), Err: err}
			}
		}
	}

	if err := schema.ValidateShape(data); err != nil {
		return nil, &LoadError{Code: ErrCodeShape, Message: "document shape rejected", Err: err}
	}

	var def schema.Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("decoding %s", path), Err: err}
	}

	schema.Normalize(&def)
	return &def, nil
}

// LoadFlatRules reads per-field generation rules for flat schemas from a
// JSON or YAML file.
func LoadFlatRules(path string) (schema.FlatRules, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("rules file not found: %s", path)}
		}
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s", path), Err: err}
	}

	data := raw
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" || !json.Valid(raw) {
		data, err = yamlToJSON(raw)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("parsing %s", path), Err: err}
		}
	}

	var rules schema.FlatRules
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("decoding %s", path), Err: err}
	}
	return rules, nil
}

// yamlToJSON re-encodes a YAML document as JSON. yaml.v3 decodes mappings
// with string keys into map[string]any, so the round-trip is direct.
func yamlToJSON(raw []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}
