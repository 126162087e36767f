package payloadschema

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestValidateEventBatchPayload_Valid(t *testing.T) {
	payload := json.RawMessage(`{
		"source": {"type": "manual_import", "name": "casablanca-culture-office", "reliability": 0.9},
		"events": [
			{
				"external_id": "evt-001",
				"name": "Jazzablanca",
				"event_type": "festival",
				"start_date": "2026-06-12",
				"end_date": "2026-06-15",
				"city": "Casablanca",
				"venue": "Anfa Park",
				"source_url": "https://example.ma/events/evt-001"
			}
		]
	}`)

	batch, err := ValidateEventBatchPayload(payload)
	if err != nil {
		t.Fatalf("expected payload to be valid, got error: %v", err)
	}
	if batch.Source.Name != "casablanca-culture-office" {
		t.Fatalf("expected source name casablanca-culture-office, got %q", batch.Source.Name)
	}
	if len(batch.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(batch.Events))
	}
}

func TestValidateEventBatchPayload_MissingRequiredField(t *testing.T) {
	payload := json.RawMessage(`{
		"source": {"type": "manual_import", "name": "x"},
		"events": [
			{
				"external_id": "evt-001",
				"name": "Jazzablanca",
				"event_type": "festival",
				"start_date": "2026-06-12",
				"source_url": "https://example.ma/events/evt-001"
			}
		]
	}`)

	if _, err := ValidateEventBatchPayload(payload); err == nil {
		t.Fatalf("expected validation to fail for missing city")
	}
}

func TestValidateEventBatchPayload_RejectsDuplicateExternalID(t *testing.T) {
	payload := json.RawMessage(`{
		"source": {"type": "manual_import", "name": "x"},
		"events": [
			{"external_id": "evt-001", "name": "A", "event_type": "concert", "start_date": "2026-06-12", "city": "Rabat", "source_url": "https://example.ma/a"},
			{"external_id": "evt-001", "name": "B", "event_type": "concert", "start_date": "2026-06-13", "city": "Rabat", "source_url": "https://example.ma/b"}
		]
	}`)

	_, err := ValidateEventBatchPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for duplicate external_id")
	}
	if !strings.Contains(err.Error(), "duplicated") {
		t.Fatalf("expected duplicate-id error, got: %v", err)
	}
}

func TestValidateEventBatchPayload_RejectsWrongSourceType(t *testing.T) {
	payload := json.RawMessage(`{
		"source": {"type": "api", "name": "x"},
		"events": [
			{"external_id": "evt-001", "name": "A", "event_type": "concert", "start_date": "2026-06-12", "city": "Rabat", "source_url": "https://example.ma/a"}
		]
	}`)

	if _, err := ValidateEventBatchPayload(payload); err == nil {
		t.Fatalf("expected validation to fail when source.type is not manual_import")
	}
}

func TestValidateEventBatchPayload_RejectsEmptyEvents(t *testing.T) {
	payload := json.RawMessage(`{"source": {"type": "manual_import", "name": "x"}, "events": []}`)

	if _, err := ValidateEventBatchPayload(payload); err == nil {
		t.Fatalf("expected validation to fail for an empty events array")
	}
}

func TestValidateEventBatchPayload_TrailingContentRejected(t *testing.T) {
	payload := json.RawMessage(`{"source": {"type": "manual_import", "name": "x"}, "events": []}garbage`)

	if _, err := ValidateEventBatchPayload(payload); err == nil {
		t.Fatalf("expected validation to fail on trailing content after the JSON document")
	}
}
