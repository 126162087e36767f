package editorial

import (
	"context"
	"encoding/json"
	"fmt"

	"gnaoua.dev/catalog/internal/db"
	"gnaoua.dev/catalog/internal/globaltime"
)

// eventSnapshot is the full row captured before a losing event is deleted,
// kept verbatim so a merge can always be audited after the fact.
type eventSnapshot struct {
	EventID              int64   `json:"event_id"`
	Slug                 string  `json:"slug"`
	Name                 string  `json:"name"`
	EventType            string  `json:"event_type"`
	Description          *string `json:"description"`
	StartDate            string  `json:"start_date"`
	EndDate              *string `json:"end_date"`
	CityID               int32   `json:"city_id"`
	RegionID             int32   `json:"region_id"`
	VenueID              *int64  `json:"venue_id"`
	OrganizerID          *int64  `json:"organizer_id"`
	OfficialWebsite      *string `json:"official_website"`
	HasTickets           bool    `json:"has_tickets"`
	Status               string  `json:"status"`
	IsVerified           bool    `json:"is_verified"`
	IsPinned             bool    `json:"is_pinned"`
	CulturalSignificance int16   `json:"cultural_significance"`
	ConfidenceScore      float64 `json:"confidence_score"`
}

// Merge folds loseID into keepID: the losing event is snapshotted,
// its EventSources and non-duplicate EventArtists are re-linked to
// keepID, and the losing event row is removed. Both event rows are
// locked in ascending id order regardless of which one is "keep" or
// "lose", so two concurrent merges touching the same pair can never
// deadlock against each other.
func (h *Handler) Merge(ctx context.Context, actor string, keepID, loseID int64) error {
	if keepID == loseID {
		return fmt.Errorf("merge: keep_id and lose_id must differ")
	}
	if h == nil || h.pool == nil {
		return fmt.Errorf("editorial: handler is not initialized")
	}

	tx, err := h.pool.BeginTx(ctx, db.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin merge transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lo, hi := keepID, loseID
	if lo > hi {
		lo, hi = hi, lo
	}
	if err := lockEventTx(ctx, tx, lo); err != nil {
		return err
	}
	if err := lockEventTx(ctx, tx, hi); err != nil {
		return err
	}

	snap, err := loadEventSnapshotTx(ctx, tx, loseID)
	if err != nil {
		return err
	}
	if err := insertEventSnapshotTx(ctx, tx, loseID, snap, fmt.Sprintf("merged_into_%d", keepID)); err != nil {
		return err
	}

	if err := relinkEventSourcesTx(ctx, tx, keepID, loseID); err != nil {
		return err
	}
	if err := relinkEventArtistsTx(ctx, tx, keepID, loseID); err != nil {
		return err
	}
	if err := deleteOrphanedAssociationsTx(ctx, tx, loseID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM catalog.events WHERE event_id = $1`, loseID); err != nil {
		return fmt.Errorf("delete merged event %d: %w", loseID, err)
	}

	if err := recomputeConfidenceTx(ctx, tx, keepID); err != nil {
		return err
	}
	if err := insertEditorialActionTx(ctx, tx, keepID, "merge", actor, map[string]any{"keep_id": keepID, "lose_id": loseID}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit merge of %d into %d: %w", loseID, keepID, err)
	}

	if err := h.projectUpsert(ctx, keepID); err != nil {
		return err
	}
	return h.projectDelete(ctx, loseID)
}

func loadEventSnapshotTx(ctx context.Context, tx db.Tx, eventID int64) (eventSnapshot, error) {
	const q = `
SELECT event_id, slug, name, event_type, description, start_date::text, end_date::text,
       city_id, region_id, venue_id, organizer_id, official_website, has_tickets,
       status, is_verified, is_pinned, cultural_significance, confidence_score
FROM catalog.events
WHERE event_id = $1
`
	var snap eventSnapshot
	err := tx.QueryRow(ctx, q, eventID).Scan(
		&snap.EventID, &snap.Slug, &snap.Name, &snap.EventType, &snap.Description, &snap.StartDate, &snap.EndDate,
		&snap.CityID, &snap.RegionID, &snap.VenueID, &snap.OrganizerID, &snap.OfficialWebsite, &snap.HasTickets,
		&snap.Status, &snap.IsVerified, &snap.IsPinned, &snap.CulturalSignificance, &snap.ConfidenceScore,
	)
	if err != nil {
		return eventSnapshot{}, fmt.Errorf("load snapshot for event %d: %w", eventID, err)
	}
	return snap, nil
}

func insertEventSnapshotTx(ctx context.Context, tx db.Tx, eventID int64, snap eventSnapshot, reason string) error {
	encoded, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot for event %d: %w", eventID, err)
	}
	const q = `
INSERT INTO catalog.event_snapshots (event_id, snapshot, reason, created_at)
VALUES ($1, $2::jsonb, $3, $4)
`
	if _, err := tx.Exec(ctx, q, eventID, string(encoded), reason, globaltime.UTC()); err != nil {
		return fmt.Errorf("insert snapshot for event %d: %w", eventID, err)
	}
	return nil
}

// relinkEventSourcesTx moves loseID's provenance rows to keepID. A source
// that already reported keepID under the same external_id is dropped
// rather than moved, since keepID's own row for that source already
// carries the canonical provenance.
func relinkEventSourcesTx(ctx context.Context, tx db.Tx, keepID, loseID int64) error {
	const dedupeQ = `
DELETE FROM catalog.event_sources es_lose
USING catalog.event_sources es_keep
WHERE es_lose.event_id = $2
  AND es_keep.event_id = $1
  AND es_keep.source_id = es_lose.source_id
  AND es_keep.external_id = es_lose.external_id
`
	if _, err := tx.Exec(ctx, dedupeQ, keepID, loseID); err != nil {
		return fmt.Errorf("dedupe event sources merging %d into %d: %w", loseID, keepID, err)
	}

	const moveQ = `UPDATE catalog.event_sources SET event_id = $1 WHERE event_id = $2`
	if _, err := tx.Exec(ctx, moveQ, keepID, loseID); err != nil {
		return fmt.Errorf("relink event sources merging %d into %d: %w", loseID, keepID, err)
	}
	return nil
}

// relinkEventArtistsTx copies loseID's artist links onto keepID, skipping
// any artist keepID already carries.
func relinkEventArtistsTx(ctx context.Context, tx db.Tx, keepID, loseID int64) error {
	const q = `
INSERT INTO catalog.event_artists (event_id, artist_id)
SELECT $1, artist_id FROM catalog.event_artists WHERE event_id = $2
ON CONFLICT (event_id, artist_id) DO NOTHING
`
	if _, err := tx.Exec(ctx, q, keepID, loseID); err != nil {
		return fmt.Errorf("relink event artists merging %d into %d: %w", loseID, keepID, err)
	}
	return nil
}

// deleteOrphanedAssociationsTx clears everything still pointing at loseID
// once its sources and artists have been re-linked, since the schema
// carries no ON DELETE CASCADE and the events row is about to disappear.
func deleteOrphanedAssociationsTx(ctx context.Context, tx db.Tx, loseID int64) error {
	stmts := []string{
		`DELETE FROM catalog.event_artists WHERE event_id = $1`,
		`DELETE FROM catalog.event_genres WHERE event_id = $1`,
		`DELETE FROM catalog.fingerprints WHERE event_id = $1`,
	}
	for _, q := range stmts {
		if _, err := tx.Exec(ctx, q, loseID); err != nil {
			return fmt.Errorf("clear associations for merged event %d: %w", loseID, err)
		}
	}
	return nil
}
