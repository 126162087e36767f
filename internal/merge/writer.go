// Package merge implements the transactional application of a
// deduplication decision: creating a new event, merging into an existing
// one, or queuing a candidate for human review.
package merge

import (
	"context"
	"fmt"
	"time"

	"gnaoua.dev/catalog/internal/candidate"
	"gnaoua.dev/catalog/internal/confidence"
	"gnaoua.dev/catalog/internal/db"
	"gnaoua.dev/catalog/internal/dedup"
	"gnaoua.dev/catalog/internal/fingerprint"
	"gnaoua.dev/catalog/internal/globaltime"
	"gnaoua.dev/catalog/internal/normalize"
)

// SourceMeta is what the writer needs about the originating source of a
// candidate, independent of the candidate store row.
type SourceMeta struct {
	SourceID    int64
	Reliability float64
}

// Projector is the narrow search-projection contract the writer calls as a
// post-commit hook: the per-event upsert/delete is issued right after the
// transaction commits. If the hook fails, the event is enqueued
// for retry. Kept as an interface so this package never imports the search
// client directly.
type Projector interface {
	UpsertEvent(ctx context.Context, eventID int64) error
	EnqueueRetry(ctx context.Context, eventID int64, operation string, cause error) error
}

// Writer applies dedup.Result decisions transactionally.
type Writer struct {
	pool      *db.Pool
	projector Projector
}

func NewWriter(pool *db.Pool) *Writer {
	return &Writer{pool: pool}
}

// SetProjector wires the post-commit search projection hook. Left unset,
// Apply skips projection entirely (useful for tests and for the
// review-only path, which never needs it).
func (w *Writer) SetProjector(p Projector) {
	w.projector = p
}

// Outcome reports what the writer actually did, for the orchestrator's
// IngestionReport counters.
type Outcome struct {
	EventID       int64
	Action        dedup.Action
	ReviewFlagged bool
}

// Apply runs one candidate's dedup decision inside a single transaction.
// c must already carry its four (or fewer) fingerprints.
func (w *Writer) Apply(ctx context.Context, c candidate.Candidate, result dedup.Result, fingerprints map[fingerprint.Kind]string, src SourceMeta) (Outcome, error) {
	if w == nil || w.pool == nil {
		return Outcome{}, fmt.Errorf("merge writer is not initialized")
	}

	tx, err := w.pool.BeginTx(ctx, db.TxOptions{})
	if err != nil {
		return Outcome{}, fmt.Errorf("begin merge transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var outcome Outcome
	switch result.Action {
	case dedup.ActionCreate:
		outcome, err = applyCreateTx(ctx, tx, c, fingerprints, src)
	case dedup.ActionMerge:
		outcome, err = applyMergeTx(ctx, tx, c, result, fingerprints, src)
	case dedup.ActionReview:
		outcome, err = applyReviewTx(ctx, tx, c, result)
	default:
		err = fmt.Errorf("unknown dedup action %q", result.Action)
	}
	if err != nil {
		return Outcome{}, err
	}

	matchedEventID := (*int64)(nil)
	if outcome.EventID != 0 {
		id := outcome.EventID
		matchedEventID = &id
	}
	if err := candidate.MarkProcessedTx(ctx, tx, c.CandidateID, string(result.Action), matchedEventID, result.Confidence, string(result.MatchType)); err != nil {
		return Outcome{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Outcome{}, fmt.Errorf("commit merge transaction: %w", err)
	}

	if w.projector != nil && result.Action != dedup.ActionReview {
		if projErr := w.projector.UpsertEvent(ctx, outcome.EventID); projErr != nil {
			if retryErr := w.projector.EnqueueRetry(ctx, outcome.EventID, "upsert", projErr); retryErr != nil {
				return outcome, fmt.Errorf("project event %d and enqueue retry both failed: %w", outcome.EventID, retryErr)
			}
		}
	}

	return outcome, nil
}

func applyCreateTx(ctx context.Context, tx db.Tx, c candidate.Candidate, fingerprints map[fingerprint.Kind]string, src SourceMeta) (Outcome, error) {
	eventID, err := insertEventTx(ctx, tx, c)
	if err != nil {
		return Outcome{}, err
	}
	if err := insertEventSourceTx(ctx, tx, eventID, c, src); err != nil {
		return Outcome{}, err
	}
	if err := replaceFingerprintsTx(ctx, tx, eventID, fingerprints); err != nil {
		return Outcome{}, err
	}
	if err := confidence.RecomputeTx(ctx, tx, eventID); err != nil {
		return Outcome{}, err
	}
	return Outcome{EventID: eventID, Action: dedup.ActionCreate}, nil
}

func applyMergeTx(ctx context.Context, tx db.Tx, c candidate.Candidate, result dedup.Result, fingerprints map[fingerprint.Kind]string, src SourceMeta) (Outcome, error) {
	eventID := result.ExistingEventID

	// Read the incumbent best reliability before this candidate's own
	// source row lands in event_sources, otherwise the MAX() below always
	// counts the just-inserted row and an overwrite can never win.
	bestReliability, err := bestSourceReliabilityTx(ctx, tx, eventID)
	if err != nil {
		return Outcome{}, err
	}

	if err := insertEventSourceTx(ctx, tx, eventID, c, src); err != nil {
		return Outcome{}, err
	}

	reviewFlagged := false
	switch {
	case src.Reliability > bestReliability:
		if err := overwriteEventAttributesTx(ctx, tx, eventID, c); err != nil {
			return Outcome{}, err
		}
		if err := replaceFingerprintsTx(ctx, tx, eventID, fingerprints); err != nil {
			return Outcome{}, err
		}
	case src.Reliability == bestReliability:
		conflicting, err := attributesConflictTx(ctx, tx, eventID, c)
		if err != nil {
			return Outcome{}, err
		}
		if conflicting {
			if err := insertEditorialActionTx(ctx, tx, eventID, "review_flagged", "system", map[string]any{
				"reason":       "reliability_tie",
				"candidate_id": c.CandidateID,
			}); err != nil {
				return Outcome{}, err
			}
			reviewFlagged = true
		}
	}

	if err := touchLastVerifiedTx(ctx, tx, eventID); err != nil {
		return Outcome{}, err
	}
	if err := confidence.RecomputeTx(ctx, tx, eventID); err != nil {
		return Outcome{}, err
	}

	return Outcome{EventID: eventID, Action: dedup.ActionMerge, ReviewFlagged: reviewFlagged}, nil
}

func applyReviewTx(_ context.Context, _ db.Tx, _ candidate.Candidate, result dedup.Result) (Outcome, error) {
	// Writing the candidate to the review queue is just leaving it
	// unprocessed with outcome=review, handled by the caller's
	// MarkProcessedTx call; no event mutation happens for a review.
	return Outcome{EventID: result.ExistingEventID, Action: dedup.ActionReview}, nil
}

func insertEventTx(ctx context.Context, tx db.Tx, c candidate.Candidate) (int64, error) {
	const q = `
INSERT INTO catalog.events (slug, name, event_type, description, start_date, end_date, city_id, venue_id, official_website, has_tickets, status, created_at, updated_at, last_verified_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'announced', $11, $11, $11)
RETURNING event_id
`
	venueID, err := findOrCreateVenueTx(ctx, tx, c.VenueName, c.CityID)
	if err != nil {
		return 0, err
	}

	now := globaltime.UTC()
	slug := uniqueSlug(c.RawName, c.StartDate)
	hasTickets := false
	if c.RawHasTickets != nil {
		hasTickets = *c.RawHasTickets
	}

	var eventID int64
	err = tx.QueryRow(ctx, q, slug, c.RawName, c.EventType, nilIfEmpty(c.RawDescription), c.StartDate, c.EndDate, c.CityID, venueID, nilIfEmpty(c.RawOfficialWebsite), hasTickets, now).Scan(&eventID)
	if err != nil {
		return 0, fmt.Errorf("insert event for candidate %d: %w", c.CandidateID, err)
	}
	return eventID, nil
}

func overwriteEventAttributesTx(ctx context.Context, tx db.Tx, eventID int64, c candidate.Candidate) error {
	venueID, err := findOrCreateVenueTx(ctx, tx, c.VenueName, c.CityID)
	if err != nil {
		return err
	}

	const q = `
UPDATE catalog.events
SET name = $2, start_date = $3, end_date = $4, venue_id = $5, official_website = $6, has_tickets = $7, updated_at = $8
WHERE event_id = $1
`
	hasTickets := false
	if c.RawHasTickets != nil {
		hasTickets = *c.RawHasTickets
	}
	_, err = tx.Exec(ctx, q, eventID, c.RawName, c.StartDate, c.EndDate, venueID, nilIfEmpty(c.RawOfficialWebsite), hasTickets, globaltime.UTC())
	if err != nil {
		return fmt.Errorf("overwrite event %d attributes: %w", eventID, err)
	}
	return nil
}

// attributesConflictTx reports whether the candidate's canonical
// attributes actually differ from the stored event, used only to decide
// whether a reliability tie is a genuine conflict worth flagging rather
// than two sources independently agreeing.
func attributesConflictTx(ctx context.Context, tx db.Tx, eventID int64, c candidate.Candidate) (bool, error) {
	const q = `SELECT name, start_date FROM catalog.events WHERE event_id = $1`
	var storedName string
	var storedStart time.Time
	if err := tx.QueryRow(ctx, q, eventID).Scan(&storedName, &storedStart); err != nil {
		return false, fmt.Errorf("load event %d for conflict check: %w", eventID, err)
	}
	if normalize.Name(storedName) != c.NormalizedName {
		return true, nil
	}
	if c.StartDate != nil && !storedStart.Equal(*c.StartDate) {
		return true, nil
	}
	return false, nil
}

func bestSourceReliabilityTx(ctx context.Context, tx db.Tx, eventID int64) (float64, error) {
	const q = `
SELECT COALESCE(MAX(s.reliability_score), 0.3)
FROM catalog.event_sources es
JOIN catalog.sources s ON s.source_id = es.source_id
WHERE es.event_id = $1
`
	var best float64
	if err := tx.QueryRow(ctx, q, eventID).Scan(&best); err != nil {
		return 0, fmt.Errorf("load best source reliability for event %d: %w", eventID, err)
	}
	return best, nil
}

// insertEventSourceTx always appends a new provenance row, even when this
// source already reported this external_id for this event (a re-fetch of an
// unchanged record, or a second candidate from the same poll). Each fetch is
// its own piece of evidence for the confidence scorer's source-agreement
// term, so collapsing repeats would undercount corroboration.
func insertEventSourceTx(ctx context.Context, tx db.Tx, eventID int64, c candidate.Candidate, src SourceMeta) error {
	const q = `
INSERT INTO catalog.event_sources (event_id, source_id, external_id, source_url, raw_payload, reported_start_date, reported_venue_name, fetched_at, created_at)
VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8, $8)
`
	now := globaltime.UTC()
	raw := c.RawPayload
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	_, err := tx.Exec(ctx, q, eventID, src.SourceID, c.ExternalID, c.SourceURL, string(raw), c.StartDate, c.VenueName, now)
	if err != nil {
		return fmt.Errorf("insert event_source for event %d: %w", eventID, err)
	}
	return nil
}

func touchLastVerifiedTx(ctx context.Context, tx db.Tx, eventID int64) error {
	const q = `UPDATE catalog.events SET last_verified_at = $2, updated_at = $2 WHERE event_id = $1`
	_, err := tx.Exec(ctx, q, eventID, globaltime.UTC())
	if err != nil {
		return fmt.Errorf("touch last_verified_at for event %d: %w", eventID, err)
	}
	return nil
}

// replaceFingerprintsTx removes the event's existing fingerprint rows and
// inserts the fresh set atomically: every fingerprint change removes old
// rows for the affected event and inserts new ones in the same transaction.
func replaceFingerprintsTx(ctx context.Context, tx db.Tx, eventID int64, fingerprints map[fingerprint.Kind]string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM catalog.fingerprints WHERE event_id = $1`, eventID); err != nil {
		return fmt.Errorf("delete stale fingerprints for event %d: %w", eventID, err)
	}

	const q = `INSERT INTO catalog.fingerprints (event_id, kind, hash, created_at) VALUES ($1, $2, $3, $4)`
	now := globaltime.UTC()
	for kind, hash := range fingerprints {
		if _, err := tx.Exec(ctx, q, eventID, string(kind), hash, now); err != nil {
			return fmt.Errorf("insert fingerprint kind=%s for event %d: %w", kind, eventID, err)
		}
	}
	return nil
}

func insertEditorialActionTx(ctx context.Context, tx db.Tx, eventID int64, actionType, actor string, payload map[string]any) error {
	const q = `
INSERT INTO catalog.editorial_actions (action_type, event_id, actor, payload, created_at)
VALUES ($1, $2, $3, $4::jsonb, $5)
`
	encoded, err := marshalPayload(payload)
	if err != nil {
		return fmt.Errorf("marshal editorial action payload: %w", err)
	}
	if _, err := tx.Exec(ctx, q, actionType, eventID, actor, encoded, globaltime.UTC()); err != nil {
		return fmt.Errorf("insert editorial action for event %d: %w", eventID, err)
	}
	return nil
}

func findOrCreateVenueTx(ctx context.Context, tx db.Tx, venueName *string, cityID *int32) (*int64, error) {
	if venueName == nil || *venueName == "" {
		return nil, nil
	}
	normalized := normalize.Name(*venueName)
	if normalized == "" {
		return nil, nil
	}

	const selectQ = `SELECT venue_id FROM catalog.venues WHERE normalized_name = $1 AND (city_id = $2 OR (city_id IS NULL AND $2 IS NULL))`
	var venueID int64
	err := tx.QueryRow(ctx, selectQ, normalized, cityID).Scan(&venueID)
	if err == nil {
		return &venueID, nil
	}
	if !db.IsNoRows(err) {
		return nil, fmt.Errorf("lookup venue %q: %w", *venueName, err)
	}

	const insertQ = `
INSERT INTO catalog.venues (city_id, name, normalized_name, slug)
VALUES ($1, $2, $3, $4)
ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
RETURNING venue_id
`
	slug := uniqueVenueSlug(*venueName, cityID)
	if err := tx.QueryRow(ctx, insertQ, cityID, *venueName, normalized, slug).Scan(&venueID); err != nil {
		return nil, fmt.Errorf("insert venue %q: %w", *venueName, err)
	}
	return &venueID, nil
}

func marshalPayload(payload map[string]any) (string, error) {
	encoded, err := jsonMarshal(payload)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
