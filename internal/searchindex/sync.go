package searchindex

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/typesense/typesense-go/typesense"
	"github.com/typesense/typesense-go/typesense/api"

	"gnaoua.dev/catalog/internal/db"
	"gnaoua.dev/catalog/internal/errorkind"
	"gnaoua.dev/catalog/internal/globaltime"
)

const rebuildBatchSize = 100

// Synchronizer is the only writer of the search engine's events collection:
// it never reads the collection back to make decisions about the
// authoritative store.
type Synchronizer struct {
	client         *typesense.Client
	pool           *db.Pool
	collectionName string
}

func NewSynchronizer(client *typesense.Client, pool *db.Pool, collectionName string) *Synchronizer {
	return &Synchronizer{client: client, pool: pool, collectionName: collectionName}
}

// RebuildResult reports full_rebuild's outcome.
type RebuildResult struct {
	Indexed int
	Errors  []RecordError
}

// RecordError is one document's per-record failure within a rebuild batch,
// which does not abort the other batches.
type RecordError struct {
	EventID int64
	Err     error
}

// FullRebuild drops and recreates the collection, then streams every
// indexable event in batches of rebuildBatchSize.
func (s *Synchronizer) FullRebuild(ctx context.Context) (RebuildResult, error) {
	if s == nil || s.client == nil || s.pool == nil {
		return RebuildResult{}, fmt.Errorf("searchindex: synchronizer is not initialized")
	}

	if _, err := s.client.Collection(s.collectionName).Delete(ctx); err != nil && !isNotFound(err) {
		return RebuildResult{}, fmt.Errorf("drop collection %q: %w", s.collectionName, err)
	}
	if _, err := s.client.Collections().Create(ctx, collectionSchema(s.collectionName)); err != nil {
		return RebuildResult{}, fmt.Errorf("recreate collection %q: %w", s.collectionName, err)
	}

	ids, err := s.listIndexableEventIDs(ctx)
	if err != nil {
		return RebuildResult{}, err
	}

	var result RebuildResult
	for start := 0; start < len(ids); start += rebuildBatchSize {
		end := start + rebuildBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		docs := make([]interface{}, 0, len(batch))
		docByIndex := make([]int64, 0, len(batch))
		for _, id := range batch {
			row, err := loadEventProjection(ctx, s.pool, id)
			if err != nil || row == nil {
				result.Errors = append(result.Errors, RecordError{EventID: id, Err: err})
				continue
			}
			docs = append(docs, transform(row))
			docByIndex = append(docByIndex, id)
		}
		if len(docs) == 0 {
			continue
		}

		action := "upsert"
		responses, err := s.client.Collection(s.collectionName).Documents().Import(ctx, docs, &api.ImportDocumentsParams{Action: &action})
		if err != nil {
			return result, errorkind.New(errorkind.SearchIndexError, fmt.Errorf("import batch starting at event %d: %w", batch[0], err))
		}

		for i, resp := range responses {
			if resp.Success {
				result.Indexed++
				continue
			}
			msg := "import failed"
			if resp.Error != "" {
				msg = resp.Error
			}
			result.Errors = append(result.Errors, RecordError{EventID: docByIndex[i], Err: fmt.Errorf("%s", msg)})
		}
	}

	return result, nil
}

func (s *Synchronizer) listIndexableEventIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT event_id FROM catalog.events WHERE status IN ('announced', 'confirmed')`)
	if err != nil {
		return nil, fmt.Errorf("list indexable events: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan indexable event id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpsertEvent loads event eventID with joined reference data and upserts its
// document, or deletes it if it no longer exists or is not indexable.
func (s *Synchronizer) UpsertEvent(ctx context.Context, eventID int64) error {
	if s == nil || s.client == nil || s.pool == nil {
		return fmt.Errorf("searchindex: synchronizer is not initialized")
	}

	row, err := loadEventProjection(ctx, s.pool, eventID)
	if err != nil {
		return err
	}
	if row == nil || !isIndexableStatus(row.Status) {
		return s.DeleteEvent(ctx, eventID)
	}

	doc := transform(row)
	if _, err := s.client.Collection(s.collectionName).Documents().Upsert(ctx, doc); err != nil {
		return errorkind.New(errorkind.SearchIndexError, fmt.Errorf("upsert document for event %d: %w", eventID, err))
	}
	return nil
}

// DeleteEvent deletes eventID's document, idempotently: a missing document
// is not an error.
func (s *Synchronizer) DeleteEvent(ctx context.Context, eventID int64) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("searchindex: synchronizer is not initialized")
	}

	id := fmt.Sprintf("%d", eventID)
	if _, err := s.client.Collection(s.collectionName).Document(id).Delete(ctx); err != nil && !isNotFound(err) {
		return errorkind.New(errorkind.SearchIndexError, fmt.Errorf("delete document for event %d: %w", eventID, err))
	}
	return nil
}

// EnqueueRetryTx records a failed post-commit projection hook for later
// reconciliation: a search index failure is non-fatal, it is enqueued for
// retry and the next full_rebuild reconciles it regardless.
func EnqueueRetryTx(ctx context.Context, tx db.Tx, eventID int64, operation string, cause error) error {
	const q = `
INSERT INTO catalog.search_projection_retries (idempotency_key, event_id, operation, attempts, last_error, created_at)
VALUES ($1, $2, $3, 0, $4, $5)
`
	var lastErr *string
	if cause != nil {
		msg := cause.Error()
		lastErr = &msg
	}
	_, err := tx.Exec(ctx, q, uuid.NewString(), eventID, operation, lastErr, globaltime.UTC())
	if err != nil {
		return fmt.Errorf("enqueue search projection retry for event %d: %w", eventID, err)
	}
	return nil
}

// EnqueueRetry opens its own transaction to record a failed post-commit
// projection, satisfying merge.Projector for callers outside an existing
// transaction (the merge writer calls this after its own transaction has
// already committed).
func (s *Synchronizer) EnqueueRetry(ctx context.Context, eventID int64, operation string, cause error) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("searchindex: synchronizer is not initialized")
	}

	tx, err := s.pool.BeginTx(ctx, db.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin enqueue retry transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := EnqueueRetryTx(ctx, tx, eventID, operation, cause); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ProcessRetryQueue replays up to limit queued projections, oldest first,
// removing each on success and bumping its attempt count on failure.
func (s *Synchronizer) ProcessRetryQueue(ctx context.Context, limit int) (int, error) {
	if s == nil || s.pool == nil {
		return 0, fmt.Errorf("searchindex: synchronizer is not initialized")
	}

	rows, err := s.pool.Query(ctx, `
SELECT search_projection_retry_id, event_id, operation
FROM catalog.search_projection_retries
ORDER BY created_at ASC
LIMIT $1
`, limit)
	if err != nil {
		return 0, fmt.Errorf("list search projection retries: %w", err)
	}

	type retryRow struct {
		ID        int64
		EventID   int64
		Operation string
	}
	var pending []retryRow
	for rows.Next() {
		var r retryRow
		if err := rows.Scan(&r.ID, &r.EventID, &r.Operation); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan search projection retry: %w", err)
		}
		pending = append(pending, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate search projection retries: %w", err)
	}

	resolved := 0
	for _, r := range pending {
		var opErr error
		switch r.Operation {
		case "delete":
			opErr = s.DeleteEvent(ctx, r.EventID)
		default:
			opErr = s.UpsertEvent(ctx, r.EventID)
		}

		if opErr == nil {
			if _, err := s.pool.Exec(ctx, `DELETE FROM catalog.search_projection_retries WHERE search_projection_retry_id = $1`, r.ID); err != nil {
				return resolved, fmt.Errorf("delete resolved search projection retry %d: %w", r.ID, err)
			}
			resolved++
			continue
		}

		msg := opErr.Error()
		if _, err := s.pool.Exec(ctx, `
UPDATE catalog.search_projection_retries SET attempts = attempts + 1, last_error = $2 WHERE search_projection_retry_id = $1
`, r.ID, msg); err != nil {
			return resolved, fmt.Errorf("bump search projection retry %d: %w", r.ID, err)
		}
	}

	return resolved, nil
}
