package topology

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// documentSchema is the structural contract a deployment document must
// meet before the planner touches it. Semantic checks (selector
// resolution, relation targets) happen during planning.
const documentSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["blueprint", "environment"],
  "properties": {
    "id": {"type": "string"},
    "name": {"type": "string"},
    "inputs": {"type": "object"},
    "blueprint": {
      "type": "object",
      "required": ["services"],
      "properties": {
        "id": {"type": "string"},
        "name": {"type": "string"},
        "version": {"type": "string"},
        "description": {"type": "string"},
        "services": {
          "type": "object",
          "minProperties": 1,
          "additionalProperties": {
            "type": "object",
            "required": ["component"],
            "properties": {
              "component": {
                "type": "object",
                "anyOf": [
                  {"required": ["id"]},
                  {"required": ["name"]},
                  {"required": ["resource_type"]}
                ]
              },
              "relations": {"type": "array"},
              "constraints": {"type": "array"},
              "display-name": {"type": "string"}
            }
          }
        },
        "options": {"type": "object"},
        "resources": {
          "type": "object",
          "additionalProperties": {
            "type": "object",
            "required": ["type"]
          }
        },
        "meta-data": {"type": "object"}
      }
    },
    "environment": {
      "type": "object",
      "required": ["providers"],
      "properties": {
        "name": {"type": "string"},
        "providers": {
          "type": "object",
          "minProperties": 1,
          "additionalProperties": {"type": "object"}
        }
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(documentSchema))
		if err != nil {
			schemaErr = fmt.Errorf("reading document schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("topology.json", doc); err != nil {
			schemaErr = fmt.Errorf("registering document schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile("topology.json")
	})
	return schema, schemaErr
}
