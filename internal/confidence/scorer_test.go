package confidence

import (
	"testing"
	"time"
)

func ptrInt32(v int32) *int32 { return &v }
func ptrInt64(v int64) *int64 { return &v }
func ptrF(v float64) *float64 { return &v }
func ptrStr(v string) *string { return &v }
func ptrTime(v time.Time) *time.Time { return &v }

func TestComputeFullySpecifiedEventHighConfidence(t *testing.T) {
	t.Parallel()

	fields := EventFields{
		Name: "Gnaoua Festival", StartDate: true, CityID: ptrInt32(1), Status: "announced",
		EndDate: ptrTime(time.Date(2025, 6, 29, 0, 0, 0, 0, time.UTC)), VenueID: ptrInt64(1),
		Description: "desc", OfficialWebsite: "https://example.test",
	}
	date := time.Date(2025, 6, 26, 0, 0, 0, 0, time.UTC)
	sources := []SourceSignal{
		{ReliabilityScore: 0.9, HistoricalAccuracy: ptrF(0.8), ReportedStartDate: &date, ReportedVenueName: ptrStr("Moulay Hassan"), IsPrimary: true},
		{ReliabilityScore: 0.8, ReportedStartDate: &date, ReportedVenueName: ptrStr("Moulay Hassan")},
	}
	now := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
	lastVerified := now

	got := Compute(fields, sources, lastVerified, now)
	if got < 0.9 {
		t.Fatalf("Compute() = %v, want >= 0.9 for a fully-specified, agreeing, recently verified event", got)
	}
}

func TestComputeNoSourcesUsesDefaults(t *testing.T) {
	t.Parallel()

	fields := EventFields{Name: "Timitar", StartDate: true, CityID: ptrInt32(2), Status: "announced"}
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	got := Compute(fields, nil, now, now)
	// R=0.3, C=0.7 (required only), A=0.5, T=1.0, H=0.5
	want := weightReliability*0.3 + weightCompleteness*0.7 + weightAgreement*0.5 + weightRecency*1.0 + weightHistorical*0.5
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("Compute() = %v, want %v", got, want)
	}
}

func TestComputeDisagreeingSourcesScoreZeroAgreement(t *testing.T) {
	t.Parallel()

	fields := EventFields{Name: "Timitar", StartDate: true, CityID: ptrInt32(2), Status: "announced"}
	dateA := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	dateB := time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC)
	sources := []SourceSignal{
		{ReliabilityScore: 0.8, ReportedStartDate: &dateA},
		{ReliabilityScore: 0.7, ReportedStartDate: &dateB},
	}
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	score, counted := dateAgreement(sources)
	if !counted || score != 0 {
		t.Fatalf("dateAgreement() = (%v, %v), want (0, true)", score, counted)
	}
	_ = Compute(fields, sources, now, now)
}

func TestRecencyScoreFloorsAtZero(t *testing.T) {
	t.Parallel()

	lastVerified := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	if got := recencyScore(lastVerified, now); got != 0 {
		t.Fatalf("recencyScore() = %v, want 0", got)
	}
}

func TestHistoricalScoreDefaultsWhenUnknown(t *testing.T) {
	t.Parallel()
	sources := []SourceSignal{{ReliabilityScore: 0.9, IsPrimary: true}}
	if got := historicalScore(sources); got != defaultHistorical {
		t.Fatalf("historicalScore() = %v, want %v", got, defaultHistorical)
	}
}
