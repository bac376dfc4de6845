package rest

import (
	"encoding/json"
	"fmt"
	"strings"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/device-profile-v1.json
var deviceProfileSchemaJSON string

// ProfileValidator checks incoming profile payloads against the embedded
// JSON Schema before they reach the store.
type ProfileValidator struct {
	schema *jsonschema.Schema
}

func NewProfileValidator() (*ProfileValidator, error) {
	compiler := jsonschema.NewCompiler()

	if err := compiler.AddResource("device-profile-v1.json",
		strings.NewReader(deviceProfileSchemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	schema, err := compiler.Compile("device-profile-v1.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &ProfileValidator{schema: schema}, nil
}

func (v *ProfileValidator) Validate(data []byte) error {
	var payload interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := v.schema.Validate(payload); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	return nil
}
