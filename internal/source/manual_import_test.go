package source

import (
	"context"
	"testing"
	"time"
)

func TestManualImportAdapterNormalizeRejectsMissingFields(t *testing.T) {
	t.Parallel()

	adapter := &ManualImportAdapter{}
	if err := adapter.LoadBatch(BatchPayload{
		Source: SourceBlock{Type: "manual_import", Name: "editorial desk", Reliability: 0.9},
		Events: []EventPayload{
			{ExternalID: "1", Name: "Timitar", EventType: "festival", StartDate: "2025-07-01", CityName: "Agadir", SourceURL: "https://example.test/1"},
			{ExternalID: "2", EventType: "festival", StartDate: "2025-07-01", CityName: "Agadir", SourceURL: "https://example.test/2"},
		},
	}); err != nil {
		t.Fatalf("LoadBatch() error = %v", err)
	}

	records, err := adapter.Fetch(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Fetch() returned %d records, want 2", len(records))
	}

	if _, err := adapter.Normalize(records[0]); err != nil {
		t.Fatalf("Normalize(valid) error = %v", err)
	}
	if _, err := adapter.Normalize(records[1]); err == nil {
		t.Fatalf("Normalize(missing name) expected error, got nil")
	}
}

func TestManualImportAdapterRejectsOutOfRangeReliability(t *testing.T) {
	t.Parallel()

	adapter := &ManualImportAdapter{}
	err := adapter.LoadBatch(BatchPayload{Source: SourceBlock{Reliability: 1.5}})
	if err == nil {
		t.Fatalf("LoadBatch() expected error for out-of-range reliability, got nil")
	}
}

func TestManualImportAdapterIdempotentNormalize(t *testing.T) {
	t.Parallel()

	adapter := &ManualImportAdapter{}
	_ = adapter.LoadBatch(BatchPayload{
		Events: []EventPayload{
			{ExternalID: "1", Name: "Timitar", EventType: "festival", StartDate: "2025-07-01", CityName: "Agadir", SourceURL: "https://example.test/1"},
		},
	})
	records, _ := adapter.Fetch(context.Background(), time.Time{})

	first, err := adapter.Normalize(records[0])
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	second, err := adapter.Normalize(records[0])
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if first.Name != second.Name || first.StartDate != second.StartDate || first.CityName != second.CityName {
		t.Fatalf("Normalize() not idempotent: %+v != %+v", first, second)
	}
}
