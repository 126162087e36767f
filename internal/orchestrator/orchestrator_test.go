package orchestrator

import (
	"testing"

	"gnaoua.dev/catalog/internal/source"
)

func TestToCandidateRejectsEmptyName(t *testing.T) {
	t.Parallel()
	_, err := toCandidate(1, source.RawRecord{ExternalID: "e1"}, source.Candidate{Name: "   "})
	if err == nil {
		t.Fatalf("expected error for blank name")
	}
}

func TestToCandidateRejectsUnparsableStartDate(t *testing.T) {
	t.Parallel()
	_, err := toCandidate(1, source.RawRecord{ExternalID: "e1"}, source.Candidate{
		Name:      "Gnaoua Festival",
		StartDate: "03/04/2025",
	})
	if err == nil {
		t.Fatalf("expected error for ambiguous start date")
	}
}

func TestToCandidateNormalizesAndCarriesHasTickets(t *testing.T) {
	t.Parallel()
	hasTickets := true
	sc := source.Candidate{
		Name:            "Festival Gnaoua 2025",
		EventType:       "festival",
		StartDate:       "2025-06-26",
		EndDate:         "2025-06-29",
		CityName:        "Essaouira",
		VenueName:       "Place Moulay Hassan",
		OfficialWebsite: "https://festival-gnaoua.net",
		HasTickets:      &hasTickets,
	}

	cand, err := toCandidate(7, source.RawRecord{ExternalID: "ext-1", SourceURL: "https://festival-gnaoua.net/2025"}, sc)
	if err != nil {
		t.Fatalf("toCandidate returned error: %v", err)
	}

	if cand.SourceID != 7 {
		t.Fatalf("SourceID = %d, want 7", cand.SourceID)
	}
	if cand.NormalizedName != "gnaoua" {
		t.Fatalf("NormalizedName = %q, want %q", cand.NormalizedName, "gnaoua")
	}
	if cand.StartDate == nil || cand.StartDate.Format("2006-01-02") != "2025-06-26" {
		t.Fatalf("StartDate = %v, want 2025-06-26", cand.StartDate)
	}
	if cand.EndDate == nil || cand.EndDate.Format("2006-01-02") != "2025-06-29" {
		t.Fatalf("EndDate = %v, want 2025-06-29", cand.EndDate)
	}
	if cand.RawHasTickets == nil || !*cand.RawHasTickets {
		t.Fatalf("RawHasTickets = %v, want true", cand.RawHasTickets)
	}
	if cand.VenueName == nil || *cand.VenueName != "Place Moulay Hassan" {
		t.Fatalf("VenueName = %v, want Place Moulay Hassan", cand.VenueName)
	}
}

func TestToCandidateLeavesOptionalDatesNil(t *testing.T) {
	t.Parallel()
	cand, err := toCandidate(1, source.RawRecord{ExternalID: "e1"}, source.Candidate{
		Name:      "Showcase Night",
		StartDate: "2025-01-10",
	})
	if err != nil {
		t.Fatalf("toCandidate returned error: %v", err)
	}
	if cand.EndDate != nil {
		t.Fatalf("EndDate = %v, want nil", cand.EndDate)
	}
	if cand.CityID != nil {
		t.Fatalf("CityID should not be set by toCandidate, it's resolved by the caller")
	}
}
