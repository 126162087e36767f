// Package candidate implements the durable staging area for normalized
// inbound records ahead of resolution.
package candidate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gnaoua.dev/catalog/internal/db"
	"gnaoua.dev/catalog/internal/globaltime"
)

// Candidate is the staged, normalized inbound record the resolver and merge
// writer act on.
type Candidate struct {
	CandidateID int64

	SourceID   int64
	ExternalID string
	SourceURL  *string
	RawPayload json.RawMessage

	RawName            string
	RawEventType       *string
	RawStartDate       *string
	RawEndDate         *string
	RawCityName        *string
	RawVenueName       *string
	RawOrganizerName   *string
	RawDescription     *string
	RawOfficialWebsite *string
	RawHasTickets      *bool

	NormalizedName string
	EventType      string
	StartDate      *time.Time
	EndDate        *time.Time
	CityID         *int32
	VenueName      *string

	Processed       bool
	Outcome         *string
	MatchedEventID  *int64
	MatchConfidence *float64
	MatchType       *string

	IngestedAt  time.Time
	ProcessedAt *time.Time
}

type Store struct {
	pool *db.Pool
}

func NewStore(pool *db.Pool) *Store {
	return &Store{pool: pool}
}

// Insert always appends, even when (source_id, external_id) was already
// seen: deduplication happens downstream, in the resolver, never here.
func (s *Store) Insert(ctx context.Context, c Candidate) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, fmt.Errorf("candidate store is not initialized")
	}

	const q = `
INSERT INTO catalog.candidates (
	source_id, external_id, source_url, raw_payload,
	raw_name, raw_event_type, raw_start_date, raw_end_date,
	raw_city_name, raw_venue_name, raw_organizer_name, raw_description, raw_official_website, raw_has_tickets,
	normalized_name, event_type, start_date, end_date, city_id, venue_name,
	processed, ingested_at
)
VALUES (
	$1, $2, $3, $4::jsonb,
	$5, $6, $7, $8,
	$9, $10, $11, $12, $13, $14,
	$15, $16, $17, $18, $19, $20,
	false, $21
)
RETURNING candidate_id
`

	rawPayload := c.RawPayload
	if len(rawPayload) == 0 {
		rawPayload = json.RawMessage("{}")
	}

	var id int64
	now := globaltime.UTC()
	err := s.pool.QueryRow(ctx, q,
		c.SourceID, c.ExternalID, c.SourceURL, string(rawPayload),
		c.RawName, c.RawEventType, c.RawStartDate, c.RawEndDate,
		c.RawCityName, c.RawVenueName, c.RawOrganizerName, c.RawDescription, c.RawOfficialWebsite, c.RawHasTickets,
		c.NormalizedName, c.EventType, c.StartDate, c.EndDate, c.CityID, c.VenueName,
		now,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert candidate: %w", err)
	}
	return id, nil
}

// candidateOutcomeEnum maps a dedup.Action spelling ("create"/"merge"/
// "review") to catalog.candidate_outcome's enum labels ("created"/"merged"/
// "review"). The action and the enum disagree on the first two, so every
// caller runs through this rather than writing its action string straight
// through.
var candidateOutcomeEnum = map[string]string{
	"create": "created",
	"merge":  "merged",
	"review": "review",
}

// MarkProcessedTx records the resolver's decision on a candidate row inside
// the caller's transaction: it sets processed=true along with the matched
// event id and match confidence. A
// "review" outcome leaves processed=false: the candidate remains queryable
// via ListReviewPending until a human acts on it.
func MarkProcessedTx(ctx context.Context, tx db.Tx, candidateID int64, outcome string, matchedEventID *int64, matchConfidence float64, matchType string) error {
	processed := outcome != "review"

	enumOutcome, ok := candidateOutcomeEnum[outcome]
	if !ok {
		return fmt.Errorf("mark candidate processed: unknown outcome %q", outcome)
	}

	const q = `
UPDATE catalog.candidates
SET processed = $2, outcome = $3, matched_event_id = $4, match_confidence = $5, match_type = $6, processed_at = $7
WHERE candidate_id = $1
`
	_, err := tx.Exec(ctx, q, candidateID, processed, enumOutcome, matchedEventID, matchConfidence, matchType, globaltime.UTC())
	if err != nil {
		return fmt.Errorf("mark candidate processed: %w", err)
	}
	return nil
}

// ListUnprocessed returns staged candidates awaiting resolution, oldest
// first: candidates are processed in fetch order within a source.
func (s *Store) ListUnprocessed(ctx context.Context, sourceID int64, limit int) ([]Candidate, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("candidate store is not initialized")
	}

	const q = `
SELECT candidate_id, source_id, external_id, source_url, raw_payload, raw_name,
	normalized_name, event_type, start_date, end_date, city_id, venue_name, ingested_at
FROM catalog.candidates
WHERE source_id = $1 AND processed = false AND (outcome IS NULL OR outcome != 'review')
ORDER BY ingested_at ASC
LIMIT $2
`
	rows, err := s.pool.Query(ctx, q, sourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("list unprocessed candidates: %w", err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.CandidateID, &c.SourceID, &c.ExternalID, &c.SourceURL, &c.RawPayload, &c.RawName,
			&c.NormalizedName, &c.EventType, &c.StartDate, &c.EndDate, &c.CityID, &c.VenueName, &c.IngestedAt); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListReviewPending returns candidates the resolver flagged for human
// review (outcome 'review': a date_location match below merge confidence).
// Unknown-city candidates carry no outcome and are not listed here.
func (s *Store) ListReviewPending(ctx context.Context, limit int) ([]Candidate, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("candidate store is not initialized")
	}

	const q = `
SELECT candidate_id, source_id, external_id, raw_name, normalized_name, match_type, match_confidence, ingested_at
FROM catalog.candidates
WHERE outcome = 'review'
ORDER BY ingested_at ASC
LIMIT $1
`
	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list review-pending candidates: %w", err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.CandidateID, &c.SourceID, &c.ExternalID, &c.RawName, &c.NormalizedName,
			&c.MatchType, &c.MatchConfidence, &c.IngestedAt); err != nil {
			return nil, fmt.Errorf("scan review-pending candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GarbageCollectOlderThan deletes unprocessed candidates older than
// olderThan. The gc command calls it with a cutoff of now minus the
// configured candidate retention window.
func (s *Store) GarbageCollectOlderThan(ctx context.Context, olderThan time.Time) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, fmt.Errorf("candidate store is not initialized")
	}

	const q = `DELETE FROM catalog.candidates WHERE processed = false AND ingested_at < $1`
	tag, err := s.pool.Exec(ctx, q, olderThan)
	if err != nil {
		return 0, fmt.Errorf("garbage collect candidates: %w", err)
	}
	return tag.RowsAffected(), nil
}
