package editorial

import (
	"context"
	"errors"
	"testing"
)

type fakeProjector struct {
	upsertErr    error
	deleteErr    error
	enqueueErr   error
	upsertCalls  []int64
	deleteCalls  []int64
	enqueueCalls []string
}

func (f *fakeProjector) UpsertEvent(_ context.Context, eventID int64) error {
	f.upsertCalls = append(f.upsertCalls, eventID)
	return f.upsertErr
}

func (f *fakeProjector) DeleteEvent(_ context.Context, eventID int64) error {
	f.deleteCalls = append(f.deleteCalls, eventID)
	return f.deleteErr
}

func (f *fakeProjector) EnqueueRetry(_ context.Context, eventID int64, operation string, _ error) error {
	f.enqueueCalls = append(f.enqueueCalls, operation)
	return f.enqueueErr
}

func TestProjectUpsertSkipsWithNoProjector(t *testing.T) {
	t.Parallel()
	h := &Handler{}
	if err := h.projectUpsert(context.Background(), 1); err != nil {
		t.Fatalf("projectUpsert() = %v, want nil when no projector is wired", err)
	}
}

func TestProjectUpsertFallsBackToRetryQueue(t *testing.T) {
	t.Parallel()
	fp := &fakeProjector{upsertErr: errors.New("search engine unreachable")}
	h := &Handler{projector: fp}
	if err := h.projectUpsert(context.Background(), 42); err != nil {
		t.Fatalf("projectUpsert() = %v, want nil once the retry enqueue succeeds", err)
	}
	if len(fp.enqueueCalls) != 1 || fp.enqueueCalls[0] != "upsert" {
		t.Fatalf("enqueueCalls = %v, want one \"upsert\" call", fp.enqueueCalls)
	}
}

func TestProjectUpsertReturnsErrorWhenRetryEnqueueAlsoFails(t *testing.T) {
	t.Parallel()
	fp := &fakeProjector{upsertErr: errors.New("search engine unreachable"), enqueueErr: errors.New("database down")}
	h := &Handler{projector: fp}
	if err := h.projectUpsert(context.Background(), 42); err == nil {
		t.Fatal("projectUpsert() = nil, want error when both upsert and enqueue fail")
	}
}

func TestProjectDeleteFallsBackToRetryQueue(t *testing.T) {
	t.Parallel()
	fp := &fakeProjector{deleteErr: errors.New("timeout")}
	h := &Handler{projector: fp}
	if err := h.projectDelete(context.Background(), 7); err != nil {
		t.Fatalf("projectDelete() = %v, want nil once the retry enqueue succeeds", err)
	}
	if len(fp.enqueueCalls) != 1 || fp.enqueueCalls[0] != "delete" {
		t.Fatalf("enqueueCalls = %v, want one \"delete\" call", fp.enqueueCalls)
	}
}

func TestSetSignificanceRejectsOutOfRangeScore(t *testing.T) {
	t.Parallel()
	h := &Handler{pool: nil}
	if err := h.SetSignificance(context.Background(), "admin", 1, 11); err == nil {
		t.Fatal("SetSignificance(11) = nil, want range error before touching the database")
	}
	if err := h.SetSignificance(context.Background(), "admin", 1, -1); err == nil {
		t.Fatal("SetSignificance(-1) = nil, want range error before touching the database")
	}
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	t.Parallel()
	h := &Handler{pool: nil}
	if err := h.UpdateStatus(context.Background(), "admin", 1, "deleted", nil); err == nil {
		t.Fatal("UpdateStatus(\"deleted\") = nil, want validation error before touching the database")
	}
}

func TestMergeRejectsIdenticalIDs(t *testing.T) {
	t.Parallel()
	h := &Handler{pool: nil}
	if err := h.Merge(context.Background(), "admin", 5, 5); err == nil {
		t.Fatal("Merge(5, 5) = nil, want error when keep_id equals lose_id")
	}
}
