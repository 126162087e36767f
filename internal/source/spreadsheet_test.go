package source

import (
	"context"
	"testing"
	"time"
)

func TestCoerceBoolRecognizesLiteralSet(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"TRUE": true, "true": true, "1": true, "Yes": true, "yes": true,
		"FALSE": false, "false": false, "0": false, "No": false, "no": false,
	}
	for cell, want := range cases {
		got, err := CoerceBool(cell)
		if err != nil {
			t.Fatalf("CoerceBool(%q) error = %v", cell, err)
		}
		if got != want {
			t.Fatalf("CoerceBool(%q) = %v, want %v", cell, got, want)
		}
	}
}

func TestCoerceBoolEmptyCellIsFalse(t *testing.T) {
	t.Parallel()
	got, err := CoerceBool("")
	if err != nil {
		t.Fatalf("CoerceBool(\"\") error = %v", err)
	}
	if got {
		t.Fatalf("CoerceBool(\"\") = true, want false")
	}
}

func TestCoerceBoolRejectsUnknownLiteral(t *testing.T) {
	t.Parallel()
	if _, err := CoerceBool("maybe"); err == nil {
		t.Fatalf("CoerceBool(\"maybe\") expected error, got nil")
	}
}

func TestSpreadsheetAdapterNormalizeCoercesHasTickets(t *testing.T) {
	t.Parallel()

	adapter := &SpreadsheetAdapter{SheetName: "events"}
	adapter.LoadRows([]SpreadsheetRow{
		{"name": "Gnaoua Festival", "event_type": "festival", "start_date": "2025-06-26", "city": "Essaouira", "has_tickets": "Yes"},
	})

	records, err := adapter.Fetch(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Fetch() returned %d records, want 1", len(records))
	}

	candidate, err := adapter.Normalize(records[0])
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if candidate.HasTickets == nil || !*candidate.HasTickets {
		t.Fatalf("Normalize() HasTickets = %v, want true", candidate.HasTickets)
	}
	if candidate.Name != "Gnaoua Festival" {
		t.Fatalf("Normalize() Name = %q", candidate.Name)
	}
}
