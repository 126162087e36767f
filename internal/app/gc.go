package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"gnaoua.dev/catalog/internal/candidate"
	"gnaoua.dev/catalog/internal/cli"
	"gnaoua.dev/catalog/internal/config"
)

// runGC clears stale unprocessed candidates and drains the search index
// retry queue in one pass. The command does not schedule itself; an
// external scheduler decides how often it runs.
func runGC(args []string) int {
	fs := flag.NewFlagSet("gc", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	retryLimit := fs.Int("retry-limit", 200, "Maximum search index retry queue entries to drain")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
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

	store := candidate.NewStore(pool)
	olderThan := time.Now().UTC().AddDate(0, 0, -cfg.CandidateRetentionDays)
	purged, err := store.GarbageCollectOlderThan(ctx, olderThan)
	if err != nil {
		fmt.Fprintf(os.Stderr, "candidate gc failed: %v\n", err)
		return 1
	}
	fmt.Printf("purged %d stale candidates older than %s\n", purged, olderThan.Format(time.RFC3339))

	synchronizer, err := buildSearchSynchronizer(pool, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	processed, err := synchronizer.ProcessRetryQueue(ctx, *retryLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "search retry queue drain failed: %v\n", err)
		return 1
	}
	fmt.Printf("drained %d search index retry entries\n", processed)
	return 0
}
