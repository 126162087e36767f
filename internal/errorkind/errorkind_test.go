package errorkind

import (
	"errors"
	"testing"
)

func TestRetriableClassifiesByKind(t *testing.T) {
	t.Parallel()
	cases := []struct {
		kind Kind
		want bool
	}{
		{NetworkTimeout, true},
		{RateLimited, true},
		{SourceUnavailable, true},
		{ParseError, false},
		{ValidationError, false},
		{UnknownCity, false},
	}
	for _, tc := range cases {
		err := New(tc.kind, errors.New("boom"))
		if got := err.Retriable(); got != tc.want {
			t.Fatalf("Retriable(%s) = %v, want %v", tc.kind, got, tc.want)
		}
		if got := Retriable(err); got != tc.want {
			t.Fatalf("package Retriable(%s) = %v, want %v", tc.kind, got, tc.want)
		}
	}
}

func TestAdvancesCursorBlocksOnSourceAndDatabaseErrors(t *testing.T) {
	t.Parallel()
	if New(SourceUnavailable, errors.New("down")).AdvancesCursor() {
		t.Fatalf("source_unavailable should not advance the cursor")
	}
	if New(DatabaseError, errors.New("db")).AdvancesCursor() {
		t.Fatalf("database_error should not advance the cursor")
	}
	if !New(ParseError, errors.New("bad json")).AdvancesCursor() {
		t.Fatalf("parse_error should still advance the cursor")
	}
}

func TestUnclassifiedErrorDefaultsConservatively(t *testing.T) {
	t.Parallel()
	plain := errors.New("unclassified")
	if Retriable(plain) {
		t.Fatalf("unclassified error should not be retriable")
	}
	if AdvancesCursor(plain) {
		t.Fatalf("unclassified error should not advance the cursor")
	}
	if KindOf(plain) != DatabaseError {
		t.Fatalf("KindOf(unclassified) = %s, want %s", KindOf(plain), DatabaseError)
	}
}

func TestUnwrapExposesCause(t *testing.T) {
	t.Parallel()
	cause := errors.New("root cause")
	wrapped := New(NetworkTimeout, cause)
	if !errors.Is(wrapped, cause) {
		t.Fatalf("errors.Is should see through to the wrapped cause")
	}
}
