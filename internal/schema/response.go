// Package schema checks decoded model replies against the JSON shapes the
// prompts ask for.
package schema

import (
	"bytes"
	"fmt"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// Kind names one reply schema.
type Kind string

const (
	// Assessment is the reviewer verdict: {"pass": "True"|"False", "reason": "..."}.
	Assessment Kind = "assessment.json"
	// ToolResponse is a search query or page pick: {"response": "..."}.
	ToolResponse Kind = "tool_response.json"
)

var documents = map[Kind][]byte{
	Assessment: []byte(`{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["pass", "reason"],
  "properties": {
    "pass": {"type": "string", "enum": ["True", "False"]},
    "reason": {"type": "string"}
  },
  "additionalProperties": true
}`),
	ToolResponse: []byte(`{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["response"],
  "properties": {
    "response": {
      "oneOf": [
        {"type": "string"},
        {"type": "array", "items": {"type": "string"}, "minItems": 1}
      ]
    }
  },
  "additionalProperties": true
}`),
}

var (
	compileOnce sync.Once
	compiled    map[Kind]*jsonschema.Schema
	compileErr  error
)

func compileAll() {
	compiler := jsonschema.NewCompiler()
	for kind, doc := range documents {
		if err := compiler.AddResource(string(kind), bytes.NewReader(doc)); err != nil {
			compileErr = fmt.Errorf("add %s schema: %w", kind, err)
			return
		}
	}
	compiled = make(map[Kind]*jsonschema.Schema, len(documents))
	for kind := range documents {
		s, err := compiler.Compile(string(kind))
		if err != nil {
			compileErr = fmt.Errorf("compile %s schema: %w", kind, err)
			return
		}
		compiled[kind] = s
	}
}

// Validate reports how fields deviate from kind. Callers treat a violation
// as a warning: the reply is still used as decoded.
func Validate(kind Kind, fields map[string]any) error {
	compileOnce.Do(compileAll)
	if compileErr != nil {
		return compileErr
	}
	s, ok := compiled[kind]
	if !ok {
		return fmt.Errorf("unknown schema %q", kind)
	}
	var doc interface{}
	if fields != nil {
		doc = map[string]interface{}(fields)
	}
	return s.Validate(doc)
}
