package stubapi

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// validator checks request bodies against the embedded JSON schemas.
type validator struct {
	schemas map[string]*jsonschema.Schema
}

func newValidator() (*validator, error) {
	compiler := jsonschema.NewCompiler()
	v := &validator{schemas: make(map[string]*jsonschema.Schema)}

	for _, name := range []string{"owner", "property"} {
		path := "schemas/" + name + ".json"
		f, err := schemaFS.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open schema %s: %w", path, err)
		}
		err = compiler.AddResource(path, f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("add schema resource %s: %w", path, err)
		}

		schema, err := compiler.Compile(path)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", path, err)
		}
		v.schemas[name] = schema
	}
	return v, nil
}

// validate parses body as JSON and checks it against the named schema.
func (v *validator) validate(name string, body []byte) error {
	schema, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("schema %q not found", name)
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("body is not valid JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("JSON schema validation failed: %w", err)
	}
	return nil
}
