package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/hpungsan/tango/internal/errors"
)

// Schema is a compiled JSON schema for one Language Service payload.
type Schema struct {
	name     string
	compiled *jsonschema.Schema
}

// CompileSchema compiles schemaMap under name.
func CompileSchema(name string, schemaMap map[string]any) (*Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	url := name + ".json"
	if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{name: name, compiled: compiled}, nil
}

// MustCompileSchema is CompileSchema for package-level schemas.
func MustCompileSchema(name string, schemaMap map[string]any) *Schema {
	s, err := CompileSchema(name, schemaMap)
	if err != nil {
		panic(fmt.Sprintf("schema %s: %v", name, err))
	}
	return s
}

// Validate checks data against the schema.
func (s *Schema) Validate(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := s.compiled.Validate(v); err != nil {
		return fmt.Errorf("json does not match %s schema: %w", s.name, err)
	}
	return nil
}

// Decode extracts the JSON value from a raw completion, validates it
// against schema and unmarshals it into T. Every failure is a
// SCHEMA_MISMATCH error naming the stage.
func Decode[T any](stage string, schema *Schema, raw string) (T, error) {
	var out T
	payload, err := ExtractJSON(raw)
	if err != nil {
		return out, errors.NewSchemaMismatch(stage, err)
	}
	if err := schema.Validate([]byte(payload)); err != nil {
		return out, errors.NewSchemaMismatch(stage, err)
	}
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return out, errors.NewSchemaMismatch(stage, err)
	}
	return out, nil
}

// ExtractJSON returns the outermost JSON object or array in s, tolerating
// markdown fences and surrounding prose.
func ExtractJSON(s string) (string, error) {
	s = strings.TrimSpace(s)
	objStart := strings.Index(s, "{")
	arrStart := strings.Index(s, "[")

	start, closer := objStart, "}"
	if arrStart >= 0 && (objStart < 0 || arrStart < objStart) {
		start, closer = arrStart, "]"
	}
	if start < 0 {
		return "", fmt.Errorf("no JSON value found in response")
	}
	end := strings.LastIndex(s, closer)
	if end <= start {
		return "", fmt.Errorf("no complete JSON value found in response")
	}

	candidate := s[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", fmt.Errorf("response does not contain valid JSON")
	}
	return candidate, nil
}
