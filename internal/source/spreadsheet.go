package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gnaoua.dev/catalog/internal/globaltime"
)

// SpreadsheetRow is one untyped row from a CSV/XLSX-style dump: column name
// to cell value, all strings.
type SpreadsheetRow map[string]string

// SpreadsheetAdapter accepts untyped row maps from a CSV/XLSX-style dump.
type SpreadsheetAdapter struct {
	SheetName   string
	Reliability float64
	rows        []SpreadsheetRow
}

// LoadRows stages rows for the next Fetch call. Fetch takes each row's
// external id from its external_id column when present, and otherwise
// derives one from the sheet name and the row's position.
func (sp *SpreadsheetAdapter) LoadRows(rows []SpreadsheetRow) {
	sp.rows = rows
}

func (sp *SpreadsheetAdapter) SourceType() string { return "spreadsheet" }

func (sp *SpreadsheetAdapter) DefaultReliability() float64 {
	return sp.Reliability
}

func (sp *SpreadsheetAdapter) Fetch(_ context.Context, _ time.Time) ([]RawRecord, error) {
	fetchedAt := globaltime.UTC()
	records := make([]RawRecord, 0, len(sp.rows))
	for i, row := range sp.rows {
		raw, err := json.Marshal(row)
		if err != nil {
			return records, fmt.Errorf("spreadsheet adapter: encode row %d: %w", i, err)
		}
		externalID := row["external_id"]
		if externalID == "" {
			externalID = fmt.Sprintf("%s-row-%d", sp.SheetName, i)
		}
		records = append(records, RawRecord{
			ExternalID: externalID,
			SourceURL:  row["source_url"],
			Payload:    raw,
			FetchedAt:  fetchedAt,
		})
	}
	return records, nil
}

func (sp *SpreadsheetAdapter) Normalize(record RawRecord) (Candidate, error) {
	var row SpreadsheetRow
	if err := json.Unmarshal(record.Payload, &row); err != nil {
		return Candidate{}, fmt.Errorf("spreadsheet adapter: decode row %q: %w", record.ExternalID, err)
	}

	var hasTickets *bool
	if raw, ok := row["has_tickets"]; ok {
		v, err := CoerceBool(raw)
		if err != nil {
			return Candidate{}, fmt.Errorf("spreadsheet adapter: row %q: %w", record.ExternalID, err)
		}
		hasTickets = &v
	}

	return Candidate{
		ExternalID:      record.ExternalID,
		SourceURL:       row["source_url"],
		RawPayload:      record.Payload,
		Name:            row["name"],
		EventType:       row["event_type"],
		StartDate:       row["start_date"],
		EndDate:         row["end_date"],
		CityName:        row["city"],
		VenueName:       row["venue"],
		OrganizerName:   row["organizer"],
		Description:     row["description"],
		OfficialWebsite: row["official_website"],
		HasTickets:      hasTickets,
	}, nil
}

// boolLiterals is the exact set of cell values spreadsheet cells must
// coerce to a boolean from.
var boolLiterals = map[string]bool{
	"true": true, "TRUE": true, "1": true, "yes": true, "Yes": true,
	"false": false, "FALSE": false, "0": false, "no": false, "No": false,
}

// CoerceBool coerces a spreadsheet cell's literal text into a boolean. An
// empty cell coerces to false without error; any other value outside the
// known literal set is rejected rather than guessed.
func CoerceBool(cell string) (bool, error) {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return false, nil
	}
	v, ok := boolLiterals[trimmed]
	if !ok {
		return false, fmt.Errorf("cell %q is not a recognized boolean literal", cell)
	}
	return v, nil
}
