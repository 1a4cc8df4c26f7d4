package registry

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const catalogSchema = `{
  "type": "object",
  "required": ["triggers", "actions"],
  "properties": {
    "triggers": {"type": "array", "items": {"$ref": "#/definitions/descriptor"}},
    "actions": {"type": "array", "items": {"$ref": "#/definitions/descriptor"}}
  },
  "definitions": {
    "descriptor": {
      "type": "object",
      "required": ["id", "name", "parameters"],
      "properties": {
        "id": {"type": "integer", "minimum": 1},
        "name": {"type": "string", "minLength": 1},
        "description": {"type": "string"},
        "type": {"type": "integer", "enum": [0, 1]},
        "parameters": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["key", "type"],
            "properties": {
              "key": {"type": "string", "minLength": 1},
              "type": {"type": "string", "minLength": 1},
              "description": {"type": "string"},
              "mandatory": {"type": "boolean"}
            }
          }
        }
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(catalogSchema)

// validateCatalog checks raw catalog JSON against the catalog schema.
func validateCatalog(data []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("failed to validate catalog: %w", err)
	}

	if !result.Valid() {
		var errors []string
		for _, e := range result.Errors() {
			errors = append(errors, e.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidCatalog, strings.Join(errors, "; "))
	}

	return nil
}
