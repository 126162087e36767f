package merge

import (
	"context"
	"fmt"
	"time"

	"gnaoua.dev/catalog/internal/db"
	"gnaoua.dev/catalog/internal/fingerprint"
	"gnaoua.dev/catalog/internal/normalize"
)

// RecomputeFingerprintsForCity recomputes and atomically replaces
// fingerprints for every event in a city. A city rename does not
// automatically invalidate fingerprints,
// it requires this explicit maintenance operation.
func (w *Writer) RecomputeFingerprintsForCity(ctx context.Context, cityID int32) (int, error) {
	if w == nil || w.pool == nil {
		return 0, fmt.Errorf("merge writer is not initialized")
	}

	const selectQ = `
SELECT e.event_id, e.name, e.start_date
FROM catalog.events e
WHERE e.city_id = $1
`
	rows, err := w.pool.Query(ctx, selectQ, cityID)
	if err != nil {
		return 0, fmt.Errorf("list events for city %d: %w", cityID, err)
	}

	type eventRow struct {
		EventID   int64
		Name      string
		StartDate time.Time
	}
	var events []eventRow
	for rows.Next() {
		var r eventRow
		if err := rows.Scan(&r.EventID, &r.Name, &r.StartDate); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan event for city %d: %w", cityID, err)
		}
		events = append(events, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate events for city %d: %w", cityID, err)
	}

	recomputed := 0
	for _, e := range events {
		tx, err := w.pool.BeginTx(ctx, db.TxOptions{})
		if err != nil {
			return recomputed, fmt.Errorf("begin fingerprint recompute transaction for event %d: %w", e.EventID, err)
		}

		startDate := e.StartDate
		fps := fingerprint.Generate(fingerprint.Input{
			NormalizedName: normalize.Name(e.Name),
			StartDate:      &startDate,
			CityID:         &cityID,
		})
		if err := replaceFingerprintsTx(ctx, tx, e.EventID, fps); err != nil {
			_ = tx.Rollback(ctx)
			return recomputed, err
		}
		if err := tx.Commit(ctx); err != nil {
			return recomputed, fmt.Errorf("commit fingerprint recompute for event %d: %w", e.EventID, err)
		}
		recomputed++
	}

	return recomputed, nil
}
