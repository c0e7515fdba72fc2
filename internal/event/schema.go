package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaJSON is the canonical JSON Schema for emitted events. The envelope
// fields are required on every event; additional domain payload fields are
// allowed.
const SchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "proctord/event-v1.schema.json",
  "title": "Watcher event",
  "type": "object",
  "required": ["module", "eventType", "timestamp", "ts", "count", "source"],
  "properties": {
    "module":     {"type": "string", "minLength": 1},
    "eventType":  {"type": "string", "minLength": 1},
    "timestamp":  {"type": "integer", "minimum": 0},
    "ts":         {"type": "integer", "minimum": 0},
    "count":      {"type": "integer", "minimum": 0},
    "source":     {"const": "native"},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1}
  },
  "additionalProperties": true
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("event-v1.schema.json", strings.NewReader(SchemaJSON)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile("event-v1.schema.json")
	})
	return schema, schemaErr
}

// Validate checks an event against the canonical schema. It re-marshals the
// event so the check covers exactly what a consumer would receive.
func (e Event) Validate() error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("event: compile schema: %w", err)
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("event: marshal: %w", err)
	}

	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("event: round-trip: %w", err)
	}

	if err := s.Validate(instance); err != nil {
		return fmt.Errorf("event: schema: %w", err)
	}
	return nil
}
