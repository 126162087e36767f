package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"gnaoua.dev/catalog/internal/cli"
	"gnaoua.dev/catalog/internal/config"
	"gnaoua.dev/catalog/internal/orchestrator"
)

// runIngest drives one full pipeline pass over every active source: fetch,
// normalize, resolve, merge, project. It is the command a scheduler invokes
// periodically; run-once is its alias.
func runIngest(args []string) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	ctx, cancel, pool, err := connectReadPool(5*time.Minute, envLoader)
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

	orch, err := buildOrchestrator(ctx, pool, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	report, err := orch.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ingestion run failed: %v\n", err)
		return 1
	}

	return printIngestionReport(report, outputFormat)
}

func printIngestionReport(report *orchestrator.IngestionReport, format string) int {
	if format == outputFormatJSON {
		if err := printJSON(report); err != nil {
			fmt.Fprintf(os.Stderr, "encode report: %v\n", err)
			return 1
		}
		return 0
	}

	rows := make([][]string, 0, len(report.Sources))
	for _, s := range report.Sources {
		fetchErr := ""
		if s.FetchErr != nil {
			fetchErr = s.FetchErr.Error()
		}
		rows = append(rows, []string{
			s.SourceName,
			fmt.Sprintf("%d", s.Fetched),
			fmt.Sprintf("%d", s.Created),
			fmt.Sprintf("%d", s.Merged),
			fmt.Sprintf("%d", s.ReviewNeeded),
			fmt.Sprintf("%d", len(s.Errors)),
			fetchErr,
		})
	}
	if err := writeTable([]string{"SOURCE", "FETCHED", "CREATED", "MERGED", "REVIEW", "ERRORS", "FETCH_ERR"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "write table: %v\n", err)
		return 1
	}

	fmt.Printf("\ntotal created=%d merged=%d errors=%d\n", report.TotalCreated(), report.TotalMerged(), report.TotalErrors())
	if report.TotalErrors() > 0 {
		return 1
	}
	return 0
}
