package merge

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"gnaoua.dev/catalog/internal/candidate"
	"gnaoua.dev/catalog/internal/db"
	"gnaoua.dev/catalog/internal/dedup"
	"gnaoua.dev/catalog/internal/fingerprint"
)

// newMockPool wires a *db.Pool to a go-sqlmock connection through the real
// gorm postgres dialector, so the writer's raw SQL runs the same Raw/Exec
// path it does in production, with the driver swapped out from under it.
func newMockPool(t *testing.T) (*db.Pool, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	if err != nil {
		t.Fatalf("gorm.Open() error = %v", err)
	}
	return db.NewPoolFromGORM(gdb), mock
}

// S1: a second fetch of the same source reporting the same external_id for
// an event that already has a row must append rather than being swallowed
// by an ON CONFLICT DO NOTHING, since the unique index the old clause
// targeted never matched event_sources' actual three-column index anyway.
func TestInsertEventSourceTxAppendsRepeatedExternalID(t *testing.T) {
	t.Parallel()
	pool, mock := newMockPool(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO catalog.event_sources")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO catalog.event_sources")).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	tx, err := pool.BeginTx(ctx, db.TxOptions{})
	if err != nil {
		t.Fatalf("BeginTx() error = %v", err)
	}

	c := candidate.Candidate{CandidateID: 1, ExternalID: "ext-1", RawPayload: []byte(`{}`)}
	src := SourceMeta{SourceID: 7, Reliability: 0.8}

	if err := insertEventSourceTx(ctx, tx, 100, c, src); err != nil {
		t.Fatalf("first insertEventSourceTx() error = %v", err)
	}
	if err := insertEventSourceTx(ctx, tx, 100, c, src); err != nil {
		t.Fatalf("second insertEventSourceTx() error = %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// S2: a candidate from a strictly more reliable source than the event's
// current best must overwrite the canonical attributes and fingerprints.
// bestSourceReliabilityTx has to run before the candidate's own source row
// is inserted, otherwise MAX() always sees its own row and an overwrite can
// never fire; the mock's in-order expectations enforce that sequencing.
func TestApplyMergeTxOverwritesWhenCandidateSourceMoreReliable(t *testing.T) {
	t.Parallel()
	pool, mock := newMockPool(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(s.reliability_score)")).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0.4))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO catalog.event_sources")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET name = $2, start_date = $3")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM catalog.fingerprints")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO catalog.fingerprints")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET last_verified_at = $2, updated_at = $2")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, start_date, city_id, status, end_date, venue_id, description, official_website, last_verified_at")).
		WillReturnRows(sqlmock.NewRows([]string{
			"name", "start_date", "city_id", "status", "end_date", "venue_id", "description", "official_website", "last_verified_at",
		}).AddRow("Old Name", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), nil, "announced", nil, nil, "", "", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT s.reliability_score, s.historical_accuracy, es.reported_start_date, es.reported_venue_name")).
		WillReturnRows(sqlmock.NewRows([]string{
			"reliability_score", "historical_accuracy", "reported_start_date", "reported_venue_name", "is_primary",
		}).AddRow(1.0, nil, nil, nil, true))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE catalog.events SET confidence_score = $2, last_verified_at = $3, updated_at = $3")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := pool.BeginTx(ctx, db.TxOptions{})
	if err != nil {
		t.Fatalf("BeginTx() error = %v", err)
	}

	c := candidate.Candidate{
		CandidateID: 2,
		ExternalID:  "ext-2",
		RawPayload:  []byte(`{}`),
		RawName:     "New Name, Strictly More Reliable Source",
	}
	result := dedup.Result{Action: dedup.ActionMerge, ExistingEventID: 100, MatchType: dedup.MatchExact}
	fingerprints := map[fingerprint.Kind]string{fingerprint.Exact: "hash-abc"}
	src := SourceMeta{SourceID: 9, Reliability: 1.0}

	outcome, err := applyMergeTx(ctx, tx, c, result, fingerprints, src)
	if err != nil {
		t.Fatalf("applyMergeTx() error = %v", err)
	}
	if outcome.EventID != 100 {
		t.Fatalf("outcome.EventID = %d, want 100", outcome.EventID)
	}
	if outcome.ReviewFlagged {
		t.Fatal("outcome.ReviewFlagged = true, want false for a clear overwrite")
	}

	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations (overwrite ordering or query mismatch): %v", err)
	}
}

// S3: a review decision never touches catalog.events, catalog.event_sources,
// or catalog.fingerprints; the candidate is left for MarkProcessedTx to
// queue via outcome=review.
func TestApplyReviewTxMutatesNothing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// applyReviewTx takes no live transaction argument it actually uses, so
	// passing nil here is itself the assertion: any attempt to issue a
	// query or exec against it would panic.
	result := dedup.Result{Action: dedup.ActionReview, ExistingEventID: 55, Confidence: 0.4, MatchType: dedup.MatchDateLocation}
	c := candidate.Candidate{CandidateID: 3}

	outcome, err := applyReviewTx(ctx, nil, c, result)
	if err != nil {
		t.Fatalf("applyReviewTx() error = %v", err)
	}
	if outcome.EventID != 55 || outcome.Action != dedup.ActionReview {
		t.Fatalf("outcome = %+v, want EventID=55 Action=review", outcome)
	}
}
