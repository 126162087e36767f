package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"gnaoua.dev/catalog/internal/cli"
	"gnaoua.dev/catalog/internal/config"
)

// runReindex drops and rebuilds the search collection from catalog.events,
// for recovery after a schema change or a suspected drift between the
// authoritative store and the search index.
func runReindex(args []string) int {
	fs := flag.NewFlagSet("reindex", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	ctx, cancel, pool, err := connectReadPool(10*time.Minute, envLoader)
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

	synchronizer, err := buildSearchSynchronizer(pool, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	result, err := synchronizer.FullRebuild(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reindex failed: %v\n", err)
		return 1
	}

	fmt.Printf("reindexed %d events (%d errors)\n", result.Indexed, len(result.Errors))
	for _, recErr := range result.Errors {
		fmt.Fprintf(os.Stderr, "event %d: %v\n", recErr.EventID, recErr.Err)
	}
	if len(result.Errors) > 0 {
		return 1
	}
	return 0
}
