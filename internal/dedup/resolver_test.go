package dedup

import (
	"context"
	"testing"
	"time"

	"gnaoua.dev/catalog/internal/fingerprint"
)

type fakeLookup struct {
	byKind map[fingerprint.Kind][]EventCandidate
}

func (f *fakeLookup) EventsByFingerprint(_ context.Context, kind fingerprint.Kind, _ string) ([]EventCandidate, error) {
	return f.byKind[kind], nil
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	return d
}

func TestResolveExactMatchWins(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{byKind: map[fingerprint.Kind][]EventCandidate{
		fingerprint.Exact: {{EventID: 42, Name: "gnaoua", StartDate: mustDate(t, "2025-06-26"), CityID: 1}},
	}}
	r := New(lookup)

	result, err := r.Resolve(context.Background(), Candidate{
		NormalizedName: "gnaoua", StartDate: mustDate(t, "2025-06-26"), CityID: 1,
	}, map[fingerprint.Kind]string{fingerprint.Exact: "deadbeef"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if result.Action != ActionMerge || result.MatchType != MatchExact || result.ExistingEventID != 42 {
		t.Fatalf("Resolve() = %+v, want exact merge on event 42", result)
	}
	if result.Confidence != exactMergeConfidence {
		t.Fatalf("Resolve() confidence = %v, want %v", result.Confidence, exactMergeConfidence)
	}
}

func TestResolveFuzzyNameMergeAboveThreshold(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{byKind: map[fingerprint.Kind][]EventCandidate{
		fingerprint.FuzzyName: {{EventID: 7, Name: "festival gnaoua musiques monde", StartDate: mustDate(t, "2025-06-26"), CityID: 1}},
	}}
	r := New(lookup)

	result, err := r.Resolve(context.Background(), Candidate{
		NormalizedName: "festival gnaoua musiques monde", StartDate: mustDate(t, "2025-06-26"), CityID: 1,
	}, map[fingerprint.Kind]string{fingerprint.FuzzyName: "abc"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if result.Action != ActionMerge || result.MatchType != MatchFuzzyName {
		t.Fatalf("Resolve() = %+v, want fuzzy_name merge", result)
	}
}

func TestResolveDateLocationTriggersReview(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{byKind: map[fingerprint.Kind][]EventCandidate{
		fingerprint.DateLocation: {{EventID: 9, Name: "gnaoua", StartDate: mustDate(t, "2025-06-27"), CityID: 1}},
	}}
	r := New(lookup)

	result, err := r.Resolve(context.Background(), Candidate{
		NormalizedName: "gnaoua", StartDate: mustDate(t, "2025-06-26"), CityID: 1,
	}, map[fingerprint.Kind]string{fingerprint.DateLocation: "abc"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if result.Action != ActionReview || result.MatchType != MatchDateLocation {
		t.Fatalf("Resolve() = %+v, want review on date_location", result)
	}
}

func TestResolveNoMatchesCreatesNew(t *testing.T) {
	t.Parallel()

	r := New(&fakeLookup{byKind: map[fingerprint.Kind][]EventCandidate{}})

	result, err := r.Resolve(context.Background(), Candidate{
		NormalizedName: "timitar", StartDate: mustDate(t, "2025-07-01"), CityID: 2,
	}, map[fingerprint.Kind]string{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if result.Action != ActionCreate || result.MatchType != MatchNone {
		t.Fatalf("Resolve() = %+v, want create", result)
	}
	if result.Confidence != createConfidence {
		t.Fatalf("Resolve() confidence = %v, want %v", result.Confidence, createConfidence)
	}
}

func TestResolveIsReadOnly(t *testing.T) {
	t.Parallel()
	// The resolver's only dependency is EventLookup, which has no write
	// methods in its interface; this is a compile-time property, asserted
	// here by checking that a read-only fake with no mutation hooks at all
	// satisfies EventLookup.
	var _ EventLookup = &fakeLookup{}
}

func TestJaroWinklerIdenticalStrings(t *testing.T) {
	t.Parallel()
	if got := JaroWinkler("gnaoua", "gnaoua"); got != 1.0 {
		t.Fatalf("JaroWinkler(identical) = %v, want 1.0", got)
	}
}

func TestJaroWinklerEmptyStrings(t *testing.T) {
	t.Parallel()
	if got := JaroWinkler("", ""); got != 1.0 {
		t.Fatalf("JaroWinkler(\"\", \"\") = %v, want 1.0", got)
	}
	if got := JaroWinkler("a", ""); got != 0 {
		t.Fatalf("JaroWinkler(\"a\", \"\") = %v, want 0", got)
	}
}
