// Package editorial implements the small set of human-operated commands
// that mutate an event outside the ingestion pipeline: verify, pin,
// set_significance, update_status, merge, and archive. Every command runs
// inside one authoritative-store transaction and writes exactly one
// editorial_actions row, following the teacher's update.go load-then-write
// shape and internal/merge's named-Tx-suffix helpers.
package editorial

import (
	"context"
	"encoding/json"
	"fmt"

	"gnaoua.dev/catalog/internal/confidence"
	"gnaoua.dev/catalog/internal/db"
	"gnaoua.dev/catalog/internal/globaltime"
)

// Projector is the narrow search-projection contract the handler calls
// after each command commits. gnaoua.dev/catalog/internal/searchindex.Synchronizer
// satisfies it directly.
type Projector interface {
	UpsertEvent(ctx context.Context, eventID int64) error
	DeleteEvent(ctx context.Context, eventID int64) error
	EnqueueRetry(ctx context.Context, eventID int64, operation string, cause error) error
}

// Handler applies editorial commands transactionally and audit-logs each
// one.
type Handler struct {
	pool      *db.Pool
	projector Projector
}

func NewHandler(pool *db.Pool, projector Projector) *Handler {
	return &Handler{pool: pool, projector: projector}
}

var validStatuses = map[string]bool{
	"announced": true,
	"confirmed": true,
	"cancelled": true,
	"postponed": true,
	"archived":  true,
}

// Verify sets is_verified and stamps last_verified_at.
func (h *Handler) Verify(ctx context.Context, actor string, eventID int64, flag bool, notes *string) error {
	return h.withTx(ctx, eventID, "verify", map[string]any{"flag": flag, "notes": notes}, actor, func(tx db.Tx) error {
		now := globaltime.UTC()
		_, err := tx.Exec(ctx, `UPDATE catalog.events SET is_verified = $2, last_verified_at = $3, updated_at = $3 WHERE event_id = $1`, eventID, flag, now)
		return err
	})
}

// Pin sets is_pinned.
func (h *Handler) Pin(ctx context.Context, actor string, eventID int64, flag bool, reason *string) error {
	return h.withTx(ctx, eventID, "pin", map[string]any{"flag": flag, "reason": reason}, actor, func(tx db.Tx) error {
		_, err := tx.Exec(ctx, `UPDATE catalog.events SET is_pinned = $2, updated_at = $3 WHERE event_id = $1`, eventID, flag, globaltime.UTC())
		return err
	})
}

// SetSignificance sets cultural_significance, clamped to [0, 10] by the
// database's check constraint; the handler rejects out-of-range scores
// before it ever reaches the database.
func (h *Handler) SetSignificance(ctx context.Context, actor string, eventID int64, score int) error {
	if score < 0 || score > 10 {
		return fmt.Errorf("set_significance: score %d out of range [0, 10]", score)
	}
	return h.withTx(ctx, eventID, "set_significance", map[string]any{"score": score}, actor, func(tx db.Tx) error {
		_, err := tx.Exec(ctx, `UPDATE catalog.events SET cultural_significance = $2, updated_at = $3 WHERE event_id = $1`, eventID, score, globaltime.UTC())
		return err
	})
}

// UpdateStatus transitions an event's status and, if sourceURL is given,
// records it as provenance on the editorial action itself (not a new
// EventSource row — the status change may not have come from any
// ingestion source at all).
func (h *Handler) UpdateStatus(ctx context.Context, actor string, eventID int64, status string, sourceURL *string) error {
	if !validStatuses[status] {
		return fmt.Errorf("update_status: unknown status %q", status)
	}
	err := h.withTx(ctx, eventID, "update_status", map[string]any{"status": status, "source_url": sourceURL}, actor, func(tx db.Tx) error {
		var current string
		if err := tx.QueryRow(ctx, `SELECT status FROM catalog.events WHERE event_id = $1`, eventID).Scan(&current); err != nil {
			return err
		}
		if current == "archived" && status != "archived" {
			return fmt.Errorf("event is archived and cannot change status")
		}
		_, err := tx.Exec(ctx, `UPDATE catalog.events SET status = $2, updated_at = $3 WHERE event_id = $1`, eventID, status, globaltime.UTC())
		return err
	})
	if err != nil {
		return err
	}
	return h.projectUpsert(ctx, eventID)
}

// Archive sets status=archived, terminal for visibility: archived events
// are never un-archived by this command set.
func (h *Handler) Archive(ctx context.Context, actor string, eventID int64, reason *string) error {
	err := h.withTx(ctx, eventID, "archive", map[string]any{"reason": reason}, actor, func(tx db.Tx) error {
		_, err := tx.Exec(ctx, `UPDATE catalog.events SET status = 'archived', updated_at = $2 WHERE event_id = $1`, eventID, globaltime.UTC())
		return err
	})
	if err != nil {
		return err
	}
	return h.projectDelete(ctx, eventID)
}

// withTx loads and locks the event, runs mutate inside the transaction,
// writes the audit row, and commits. After commit it upserts the event's
// search projection, except for update_status and archive, whose callers
// handle projection themselves.
func (h *Handler) withTx(ctx context.Context, eventID int64, actionType string, payload map[string]any, actor string, mutate func(db.Tx) error) error {
	if h == nil || h.pool == nil {
		return fmt.Errorf("editorial: handler is not initialized")
	}

	tx, err := h.pool.BeginTx(ctx, db.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin editorial transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockEventTx(ctx, tx, eventID); err != nil {
		return err
	}
	if err := mutate(tx); err != nil {
		return fmt.Errorf("apply %s to event %d: %w", actionType, eventID, err)
	}
	if err := insertEditorialActionTx(ctx, tx, eventID, actionType, actor, payload); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s for event %d: %w", actionType, eventID, err)
	}

	if actionType != "update_status" && actionType != "archive" {
		if perr := h.projectUpsert(ctx, eventID); perr != nil {
			return perr
		}
	}
	return nil
}

func lockEventTx(ctx context.Context, tx db.Tx, eventID int64) error {
	var found int64
	err := tx.QueryRow(ctx, `SELECT event_id FROM catalog.events WHERE event_id = $1 FOR UPDATE`, eventID).Scan(&found)
	if db.IsNoRows(err) {
		return fmt.Errorf("event %d: %w", eventID, db.ErrNoRows)
	}
	if err != nil {
		return fmt.Errorf("lock event %d: %w", eventID, err)
	}
	return nil
}

func insertEditorialActionTx(ctx context.Context, tx db.Tx, eventID int64, actionType, actor string, payload map[string]any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload for event %d: %w", actionType, eventID, err)
	}
	const q = `
INSERT INTO catalog.editorial_actions (action_type, event_id, actor, payload, created_at)
VALUES ($1, $2, $3, $4::jsonb, $5)
`
	if _, err := tx.Exec(ctx, q, actionType, eventID, actor, string(encoded), globaltime.UTC()); err != nil {
		return fmt.Errorf("insert editorial action %s for event %d: %w", actionType, eventID, err)
	}
	return nil
}

func (h *Handler) projectUpsert(ctx context.Context, eventID int64) error {
	if h.projector == nil {
		return nil
	}
	if err := h.projector.UpsertEvent(ctx, eventID); err != nil {
		if retryErr := h.projector.EnqueueRetry(ctx, eventID, "upsert", err); retryErr != nil {
			return fmt.Errorf("project event %d and enqueue retry both failed: %w", eventID, retryErr)
		}
	}
	return nil
}

func (h *Handler) projectDelete(ctx context.Context, eventID int64) error {
	if h.projector == nil {
		return nil
	}
	if err := h.projector.DeleteEvent(ctx, eventID); err != nil {
		if retryErr := h.projector.EnqueueRetry(ctx, eventID, "delete", err); retryErr != nil {
			return fmt.Errorf("project delete of event %d and enqueue retry both failed: %w", eventID, retryErr)
		}
	}
	return nil
}

// recomputeConfidenceTx delegates to the confidence package so a merge's
// reshuffled source set gets a fresh score before the transaction commits.
func recomputeConfidenceTx(ctx context.Context, tx db.Tx, eventID int64) error {
	return confidence.RecomputeTx(ctx, tx, eventID)
}
