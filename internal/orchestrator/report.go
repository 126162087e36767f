package orchestrator

import "gnaoua.dev/catalog/internal/errorkind"

// RecordError is one per-record failure the run encountered, kept instead of
// aborting the run: a bad record never blocks the rest of a source's batch.
type RecordError struct {
	SourceName string
	ExternalID string
	Kind       errorkind.Kind
	Err        error
}

// SourceReport aggregates one source's contribution to a run.
type SourceReport struct {
	SourceName   string
	Fetched      int
	Created      int
	Merged       int
	ReviewNeeded int
	Errors       []RecordError

	FetchErr       error
	CursorAdvanced bool
}

// IngestionReport is what Run returns.
type IngestionReport struct {
	Sources []SourceReport
}

func (r *IngestionReport) TotalCreated() int {
	total := 0
	for _, s := range r.Sources {
		total += s.Created
	}
	return total
}

func (r *IngestionReport) TotalMerged() int {
	total := 0
	for _, s := range r.Sources {
		total += s.Merged
	}
	return total
}

func (r *IngestionReport) TotalErrors() int {
	total := 0
	for _, s := range r.Sources {
		total += len(s.Errors)
		if s.FetchErr != nil {
			total++
		}
	}
	return total
}
