package validate

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/kaptinlin/jsonschema"
)

var compiled sync.Map

func ValidateJSON(schemaData []byte, data []byte) error {
	schema, err := compile(schemaData)
	if err != nil {
		return err
	}
	return validateJSON(schema, data)
}

// ValidateJSONFile reads jsonPath and validates it, returning the bytes it
// checked. Read failures wrap the *fs.PathError from the filesystem.
func ValidateJSONFile(schemaData []byte, jsonPath string) ([]byte, error) {
	schema, err := compile(schemaData)
	if err != nil {
		return nil, err
	}
	// #nosec G304 -- caller supplies local json path by design.
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}
	if err := validateJSON(schema, data); err != nil {
		return nil, err
	}
	return data, nil
}

// compile caches schemas by content; schemas are embedded and immutable.
func compile(schemaData []byte) (*jsonschema.Schema, error) {
	key := string(schemaData)
	if cached, ok := compiled.Load(key); ok {
		return cached.(*jsonschema.Schema), nil
	}
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	schema, err := compiler.Compile(schemaData)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	actual, _ := compiled.LoadOrStore(key, schema)
	return actual.(*jsonschema.Schema), nil
}

func validateJSON(schema *jsonschema.Schema, data []byte) error {
	result := schema.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	keys := make([]string, 0, len(result.Errors))
	for key := range result.Errors {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	problems := make([]string, 0, len(keys))
	for _, key := range keys {
		problems = append(problems, fmt.Sprintf("%s: %v", key, result.Errors[key]))
	}
	if len(problems) == 0 {
		return fmt.Errorf("schema validation failed")
	}
	return fmt.Errorf("schema validation failed: %s", strings.Join(problems, "; "))
}
