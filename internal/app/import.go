package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"gnaoua.dev/catalog/internal/cli"
	"gnaoua.dev/catalog/internal/config"
	"gnaoua.dev/catalog/internal/db"
	"gnaoua.dev/catalog/internal/globaltime"
	"gnaoua.dev/catalog/internal/source"

	payloadschema "gnaoua.dev/catalog/schema"
)

// runImport loads a manual_import batch file, registers its source block,
// and runs a single-source ingestion pass against it. Unlike ingest, this
// is a one-shot upload rather than a periodic poll.
func runImport(args []string) int {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	file := fs.String("file", "", "Path to a manual_import batch JSON file (required)")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if strings.TrimSpace(*file) == "" {
		fmt.Fprintln(os.Stderr, "--file is required")
		return 2
	}
	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", *file, err)
		return 1
	}

	batch, err := payloadschema.ValidateEventBatchPayload(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid batch: %v\n", err)
		return 2
	}

	ctx, cancel, pool, err := connectReadPool(2*time.Minute, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	sourceID, err := upsertSourceTx(ctx, pool, batch.Source.Name, "manual_import", batch.Source.Reliability)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	adapter := &source.ManualImportAdapter{Reliability: batch.Source.Reliability}
	if err := adapter.LoadBatch(*batch); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	registry := source.NewRegistry()
	if err := registry.Register(source.Registered{
		SourceID:    sourceID,
		Name:        batch.Source.Name,
		Adapter:     adapter,
		Reliability: batch.Source.Reliability,
	}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	orch, err := orchestratorFromRegistry(pool, cfg, registry)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	report, err := orch.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "import run failed: %v\n", err)
		return 1
	}

	return printIngestionReport(report, outputFormat)
}

// upsertSourceTx registers or updates a named source row, returning its id.
// A manual_import batch's source block is the only place this source's
// reliability is declared, so every import re-asserts it.
func upsertSourceTx(ctx context.Context, pool *db.Pool, name, sourceType string, reliability float64) (int64, error) {
	const q = `
INSERT INTO catalog.sources (name, source_type, reliability_score, is_active, created_at, updated_at)
VALUES ($1, $2, $3, true, $4, $4)
ON CONFLICT (name) DO UPDATE SET reliability_score = EXCLUDED.reliability_score, updated_at = EXCLUDED.updated_at
RETURNING source_id
`
	var id int64
	err := pool.QueryRow(ctx, q, name, sourceType, reliability, globaltime.UTC()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert source %q: %w", name, err)
	}
	return id, nil
}
