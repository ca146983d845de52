package adapter

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ToolManifest describes one tool a backend or MCP server exposes, along
// with the JSON Schema its arguments must satisfy (spec §4.4).
type ToolManifest struct {
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	Permission     string          `json:"permission"` // read-only | write | network | dangerous
	ArgsSchema     json.RawMessage `json:"args_schema,omitempty"`
	ExecutionModel string          `json:"execution_model"` // runtime_internal | external_mcp | hybrid
}

// ManifestValidator compiles each tool's args_schema once and validates
// tool-call arguments against it at call time. Grounded on goa-ai's
// registry.validatePayloadJSONAgainstSchema, generalized to cache one
// compiled schema per tool instead of recompiling per call.
type ManifestValidator struct {
	schemas map[string]*jsonschema.Schema
}

// NewManifestValidator compiles every manifest's args_schema (manifests
// without one are left unvalidated — any arguments pass).
func NewManifestValidator(manifests []ToolManifest) (*ManifestValidator, error) {
	v := &ManifestValidator{schemas: make(map[string]*jsonschema.Schema, len(manifests))}
	for _, m := range manifests {
		if len(m.ArgsSchema) == 0 {
			continue
		}
		var schemaDoc any
		if err := json.Unmarshal(m.ArgsSchema, &schemaDoc); err != nil {
			return nil, fmt.Errorf("adapter: unmarshal schema for tool %q: %w", m.Name, err)
		}
		c := jsonschema.NewCompiler()
		resourceID := "tool:" + m.Name
		if err := c.AddResource(resourceID, schemaDoc); err != nil {
			return nil, fmt.Errorf("adapter: add schema resource for tool %q: %w", m.Name, err)
		}
		schema, err := c.Compile(resourceID)
		if err != nil {
			return nil, fmt.Errorf("adapter: compile schema for tool %q: %w", m.Name, err)
		}
		v.schemas[m.Name] = schema
	}
	return v, nil
}

// Validate checks args against the named tool's compiled schema. Tools with
// no registered schema (no args_schema in their manifest) always validate.
func (v *ManifestValidator) Validate(toolName string, args map[string]any) error {
	schema, ok := v.schemas[toolName]
	if !ok {
		return nil
	}
	if err := schema.Validate(args); err != nil {
		return fmt.Errorf("adapter: tool %q arguments invalid: %w", toolName, err)
	}
	return nil
}
