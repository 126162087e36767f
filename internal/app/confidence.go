package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"gnaoua.dev/catalog/internal/cli"
	"gnaoua.dev/catalog/internal/config"
	"gnaoua.dev/catalog/internal/confidence"
	"gnaoua.dev/catalog/internal/db"
)

// runConfidence recomputes confidence_score for every event whose
// last_verified_at has gone stale, per CATALOG_CONFIDENCE_STALE_AFTER_DAYS.
// An event freshly touched by ingestion or an editorial command already
// carries a fresh score, so only the stale set needs this maintenance pass.
func runConfidence(args []string) int {
	fs := flag.NewFlagSet("confidence", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	ctx, cancel, pool, err := connectReadPool(5*time.Minute, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	staleBefore := time.Now().UTC().AddDate(0, 0, -cfg.ConfidenceStaleAfterDays)
	ids, err := listStaleEventIDs(ctx, pool, staleBefore)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	recomputed := 0
	for _, id := range ids {
		if err := recomputeOneEvent(ctx, pool, id); err != nil {
			fmt.Fprintf(os.Stderr, "event %d: %v\n", id, err)
			continue
		}
		recomputed++
	}

	fmt.Printf("recomputed %d/%d stale events\n", recomputed, len(ids))
	return 0
}

func listStaleEventIDs(ctx context.Context, pool *db.Pool, staleBefore time.Time) ([]int64, error) {
	rows, err := pool.Query(ctx, `SELECT event_id FROM catalog.events WHERE (last_verified_at IS NULL OR last_verified_at < $1) AND status != 'archived'`, staleBefore)
	if err != nil {
		return nil, fmt.Errorf("list stale events: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stale event id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func recomputeOneEvent(ctx context.Context, pool *db.Pool, eventID int64) error {
	tx, err := pool.BeginTx(ctx, db.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin confidence recompute transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := confidence.RecomputeTx(ctx, tx, eventID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
