package app

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gnaoua.dev/catalog/internal/config"
	"gnaoua.dev/catalog/internal/db"
	"gnaoua.dev/catalog/internal/source"
)

// loadRegistry builds a source.Registry from every active catalog.sources
// row, wiring each one to the adapter its source_type names. api and
// scraped_page sources are fully configured here since their fetch target
// comes from the process environment; a spreadsheet source has its rows
// loaded from ADAPTER_SPREADSHEET_PATH when that is set, and nothing staged
// otherwise; a manual_import source is registered with nothing staged (the
// import command builds its own registry around a staged batch).
func loadRegistry(ctx context.Context, pool *db.Pool, cfg *config.Config) (*source.Registry, error) {
	rows, err := pool.Query(ctx, `SELECT source_id, name, source_type, reliability_score, last_fetch_at FROM catalog.sources WHERE is_active`)
	if err != nil {
		return nil, fmt.Errorf("list active sources: %w", err)
	}
	defer rows.Close()

	registry := source.NewRegistry()
	for rows.Next() {
		var (
			sourceID      int64
			name          string
			sourceType    string
			reliability   float64
			lastFetchedAt *time.Time
		)
		if err := rows.Scan(&sourceID, &name, &sourceType, &reliability, &lastFetchedAt); err != nil {
			return nil, fmt.Errorf("scan source row: %w", err)
		}

		adapter, err := buildAdapter(sourceType, reliability, cfg)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", name, err)
		}

		reg := source.Registered{
			SourceID:    sourceID,
			Name:        name,
			Adapter:     adapter,
			Reliability: reliability,
		}
		if lastFetchedAt != nil {
			reg.LastFetchedAt = *lastFetchedAt
		}
		if err := registry.Register(reg); err != nil {
			return nil, fmt.Errorf("register source %q: %w", name, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source rows: %w", err)
	}

	return registry, nil
}

func buildAdapter(sourceType string, reliability float64, cfg *config.Config) (source.Adapter, error) {
	switch sourceType {
	case "api":
		return &source.APIAdapter{
			BaseURL:     cfg.AdapterAPIBaseURL,
			Token:       cfg.AdapterAPIToken,
			Timeout:     cfg.AdapterFetchTimeout,
			Reliability: reliability,
		}, nil
	case "scraped_page":
		return &source.ScrapedPageAdapter{
			URLs:        cfg.AdapterScrapedURLsList(),
			Timeout:     cfg.AdapterFetchTimeout,
			UserAgent:   cfg.AdapterScrapedUserAgent,
			Reliability: reliability,
		}, nil
	case "manual_import":
		return &source.ManualImportAdapter{Reliability: reliability}, nil
	case "spreadsheet":
		path := cfg.AdapterSpreadsheetPath
		adapter := &source.SpreadsheetAdapter{SheetName: spreadsheetSheetName(path), Reliability: reliability}
		if strings.TrimSpace(path) == "" {
			return adapter, nil
		}
		rows, err := readSpreadsheetCSV(path)
		if err != nil {
			return nil, fmt.Errorf("load spreadsheet %s: %w", path, err)
		}
		adapter.LoadRows(rows)
		return adapter, nil
	default:
		return nil, fmt.Errorf("unknown source_type %q", sourceType)
	}
}

func spreadsheetSheetName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// readSpreadsheetCSV reads a CSV export at path into rows keyed by its header
// line, the shape SpreadsheetAdapter.Normalize expects (source_url, name,
// event_type, start_date, end_date, city, venue, organizer, description,
// official_website, has_tickets, and an optional external_id).
func readSpreadsheetCSV(path string) ([]source.SpreadsheetRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, col := range header {
		header[i] = strings.TrimSpace(col)
	}

	var rows []source.SpreadsheetRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		row := make(source.SpreadsheetRow, len(header))
		for i, col := range header {
			if i >= len(record) {
				continue
			}
			row[col] = record[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}
