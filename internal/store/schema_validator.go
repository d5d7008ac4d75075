package store

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/basket/murmur/internal/murmurerr"
)

// SchemaValidator compiles a JSON Schema once and validates candidate JSON
// documents against it, following the teacher's internal/engine.StructuredValidator
// compile-then-reuse pattern.
type SchemaValidator struct {
	schema *jsonschema.Schema
}

// NewSchemaValidator compiles schemaJSON into a reusable validator.
func NewSchemaValidator(schemaJSON string) (*SchemaValidator, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schemaJSON))
	if err != nil {
		return nil, murmurerr.InvalidDataf("unmarshal schema JSON", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		return nil, murmurerr.InvalidDataf("add schema resource", err)
	}
	schema, err := c.Compile("schema.json")
	if err != nil {
		return nil, murmurerr.InvalidDataf("compile schema", err)
	}
	return &SchemaValidator{schema: schema}, nil
}

// Validate checks candidateJSON against the compiled schema.
func (v *SchemaValidator) Validate(candidateJSON string) error {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(candidateJSON))
	if err != nil {
		return murmurerr.InvalidDataf("invalid JSON", err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return murmurerr.InvalidDataf(fmt.Sprintf("schema validation failed: %s", err), err)
	}
	return nil
}

// AgentRunConfigSchema is the default schema for AgentRun.config_json: an
// open object of backend-specific tuning knobs, with the fields the core
// itself interprets constrained to their expected shapes.
const AgentRunConfigSchema = `{
	"type": "object",
	"properties": {
		"model": {"type": "string"},
		"tool_allowlist": {"type": "array", "items": {"type": "string"}},
		"max_turns": {"type": "integer", "minimum": 1}
	}
}`

// IssueMetadataSchema matches the "<!-- murmur:metadata ... -->" block
// shape from spec.md §6.
const IssueMetadataSchema = `{
	"type": "object",
	"properties": {
		"phase": {"type": "integer", "minimum": 0},
		"pr": {"type": "string"},
		"depends_on": {"type": "array", "items": {"type": "integer", "minimum": 0}},
		"status": {"type": "string"},
		"type": {"type": "string"},
		"parent": {"type": "integer", "minimum": 0}
	}
}`
