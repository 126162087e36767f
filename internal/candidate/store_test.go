package candidate

import (
	"context"
	"testing"

	"gnaoua.dev/catalog/internal/db"
)

type fakeTx struct {
	execArgs []any
}

func (f *fakeTx) QueryRow(_ context.Context, _ string, _ ...any) *db.Row { return nil }
func (f *fakeTx) Query(_ context.Context, _ string, _ ...any) (*db.Rows, error) {
	return nil, nil
}
func (f *fakeTx) Exec(_ context.Context, _ string, args ...any) (db.CommandTag, error) {
	f.execArgs = args
	return db.CommandTag{}, nil
}
func (f *fakeTx) Commit(_ context.Context) error   { return nil }
func (f *fakeTx) Rollback(_ context.Context) error { return nil }

func TestMarkProcessedTxReviewLeavesUnprocessed(t *testing.T) {
	t.Parallel()

	tx := &fakeTx{}
	if err := MarkProcessedTx(context.Background(), tx, 1, "review", nil, 0.72, "date_location"); err != nil {
		t.Fatalf("MarkProcessedTx() error = %v", err)
	}

	processed, ok := tx.execArgs[1].(bool)
	if !ok || processed {
		t.Fatalf("exec args[1] = %v, want processed=false for review outcome", tx.execArgs[1])
	}
}

func TestMarkProcessedTxMergeMarksProcessed(t *testing.T) {
	t.Parallel()

	tx := &fakeTx{}
	matchedID := int64(42)
	if err := MarkProcessedTx(context.Background(), tx, 1, "merge", &matchedID, 0.95, "exact"); err != nil {
		t.Fatalf("MarkProcessedTx() error = %v", err)
	}

	processed, ok := tx.execArgs[1].(bool)
	if !ok || !processed {
		t.Fatalf("exec args[1] = %v, want processed=true for merge outcome", tx.execArgs[1])
	}
}

func TestMarkProcessedTxCreateMarksProcessed(t *testing.T) {
	t.Parallel()

	tx := &fakeTx{}
	if err := MarkProcessedTx(context.Background(), tx, 1, "create", nil, 1.0, "none"); err != nil {
		t.Fatalf("MarkProcessedTx() error = %v", err)
	}

	processed, ok := tx.execArgs[1].(bool)
	if !ok || !processed {
		t.Fatalf("exec args[1] = %v, want processed=true for create outcome", tx.execArgs[1])
	}
}
