// Package payloadschema validates a manual_import batch upload against its
// JSON Schema before any event in it reaches the normalizer.
package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"gnaoua.dev/catalog/internal/source"
)

//go:embed event_batch.schema.json
var eventBatchSchemaJSON string

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateEventBatchPayload validates payload against the manual_import
// batch schema and decodes it into a source.BatchPayload. Schema validation
// catches structural errors (missing fields, wrong types); the event-level
// checks ManualImportAdapter.Normalize runs afterward still apply per event.
func ValidateEventBatchPayload(payload json.RawMessage) (*source.BatchPayload, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var batch source.BatchPayload
	if err := json.Unmarshal(normalized, &batch); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := validateSemantics(&batch); err != nil {
		return nil, err
	}

	return &batch, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("event_batch.schema.json", strings.NewReader(eventBatchSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("event_batch.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

// validateSemantics checks cross-field constraints the schema's type/format
// rules can't express: duplicate external ids within the same batch would
// otherwise silently shadow each other in the candidate store's per-source
// scan.
func validateSemantics(batch *source.BatchPayload) error {
	if batch == nil {
		return fmt.Errorf("payload is nil")
	}

	seen := make(map[string]struct{}, len(batch.Events))
	for i, event := range batch.Events {
		id := strings.TrimSpace(event.ExternalID)
		if id == "" {
			return fmt.Errorf("events[%d].external_id must not be empty", i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("events[%d].external_id %q is duplicated within the batch", i, id)
		}
		seen[id] = struct{}{}
	}

	return nil
}
