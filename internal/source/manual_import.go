package source

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"gnaoua.dev/catalog/internal/globaltime"
)

// ManualImportAdapter accepts a pre-decoded batch payload rather than
// fetching over the network: Fetch is a no-op against the upstream and
// exists only to satisfy Adapter; the batch itself is staged by
// LoadBatch ahead of a single ingestion run.
type ManualImportAdapter struct {
	Reliability float64
	pending     []RawRecord
}

// LoadBatch validates a decoded BatchPayload's Source block and stages its
// events for the next Fetch call. Per-event validation (required fields,
// fuzzy city match) happens later, in the normalizer; LoadBatch only
// rejects a structurally invalid source block.
func (m *ManualImportAdapter) LoadBatch(batch BatchPayload) error {
	if batch.Source.Reliability < 0 || batch.Source.Reliability > 1.0 {
		return fmt.Errorf("manual_import adapter: source reliability %v out of range [0,1]", batch.Source.Reliability)
	}
	m.Reliability = batch.Source.Reliability

	fetchedAt := globaltime.UTC()
	records := make([]RawRecord, 0, len(batch.Events))
	for _, p := range batch.Events {
		raw, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("manual_import adapter: re-encode event payload: %w", err)
		}
		records = append(records, RawRecord{
			ExternalID: p.ExternalID,
			SourceURL:  p.SourceURL,
			Payload:    raw,
			FetchedAt:  fetchedAt,
		})
	}
	m.pending = records
	return nil
}

func (m *ManualImportAdapter) SourceType() string { return "manual_import" }

func (m *ManualImportAdapter) DefaultReliability() float64 {
	if m.Reliability > 0 {
		return m.Reliability
	}
	return 1.0
}

// Fetch ignores since: a manual import batch is a one-shot upload, not a
// cursor-driven poll.
func (m *ManualImportAdapter) Fetch(_ context.Context, _ time.Time) ([]RawRecord, error) {
	records := m.pending
	m.pending = nil
	return records, nil
}

func (m *ManualImportAdapter) Normalize(record RawRecord) (Candidate, error) {
	p, err := decodeEventPayload(record.Payload)
	if err != nil {
		return Candidate{}, fmt.Errorf("manual_import adapter: decode record %q: %w", record.ExternalID, err)
	}
	if utf8.RuneCountInString(p.Name) > 300 {
		return Candidate{}, fmt.Errorf("manual_import adapter: event %q name exceeds 300 characters", record.ExternalID)
	}
	if p.Name == "" {
		return Candidate{}, fmt.Errorf("manual_import adapter: event %q is missing a name", record.ExternalID)
	}
	if p.EventType == "" {
		return Candidate{}, fmt.Errorf("manual_import adapter: event %q is missing an event_type", record.ExternalID)
	}
	if p.StartDate == "" {
		return Candidate{}, fmt.Errorf("manual_import adapter: event %q is missing a start_date", record.ExternalID)
	}
	if p.CityName == "" {
		return Candidate{}, fmt.Errorf("manual_import adapter: event %q is missing a city", record.ExternalID)
	}
	if p.SourceURL == "" {
		return Candidate{}, fmt.Errorf("manual_import adapter: event %q is missing a source_url", record.ExternalID)
	}
	return p.toCandidate(record.SourceURL, record.Payload), nil
}
