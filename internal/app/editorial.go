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
	"gnaoua.dev/catalog/internal/editorial"
)

// runEditorial dispatches the human-operated event commands: verify, pin,
// set_significance, update_status, merge, and archive. Each is its own
// flag-parsed subcommand rather than a shared flag set, since their
// arguments don't overlap beyond --env and --actor.
func runEditorial(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: catalog editorial <verify|pin|set-significance|update-status|merge|archive> [flags]")
		return 2
	}

	sub, rest := args[0], args[1:]
	switch strings.ToLower(strings.TrimSpace(sub)) {
	case "verify":
		return runEditorialVerify(rest)
	case "pin":
		return runEditorialPin(rest)
	case "set-significance":
		return runEditorialSetSignificance(rest)
	case "update-status":
		return runEditorialUpdateStatus(rest)
	case "merge":
		return runEditorialMerge(rest)
	case "archive":
		return runEditorialArchive(rest)
	default:
		fmt.Fprintf(os.Stderr, "unknown editorial command: %s\n", sub)
		return 2
	}
}

func buildEditorialHandler(envLoader *cli.EnvLoader) (context.Context, *editorial.Handler, func(), error) {
	ctx, cancel, pool, err := connectReadPool(2*time.Minute, envLoader)
	if err != nil {
		return nil, nil, nil, err
	}

	cfg, err := config.Load()
	if err != nil {
		cancel()
		pool.Close()
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	synchronizer, err := buildSearchSynchronizer(pool, cfg)
	if err != nil {
		cancel()
		pool.Close()
		return nil, nil, nil, err
	}

	cleanup := func() {
		cancel()
		pool.Close()
	}
	return ctx, editorial.NewHandler(pool, synchronizer), cleanup, nil
}

func runEditorialVerify(args []string) int {
	fs := flag.NewFlagSet("editorial verify", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	eventID := fs.Int64("event-id", 0, "Event id to verify (required)")
	actor := fs.String("actor", "", "Actor performing this action (required)")
	flagValue := fs.Bool("flag", true, "Verified flag value")
	notes := fs.String("notes", "", "Optional free-text notes")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *eventID == 0 || strings.TrimSpace(*actor) == "" {
		fmt.Fprintln(os.Stderr, "--event-id and --actor are required")
		return 2
	}

	ctx, handler, cleanup, err := buildEditorialHandler(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cleanup()

	var notesPtr *string
	if strings.TrimSpace(*notes) != "" {
		notesPtr = notes
	}
	if err := handler.Verify(ctx, *actor, *eventID, *flagValue, notesPtr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("event %d verified=%t\n", *eventID, *flagValue)
	return 0
}

func runEditorialPin(args []string) int {
	fs := flag.NewFlagSet("editorial pin", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	eventID := fs.Int64("event-id", 0, "Event id to pin (required)")
	actor := fs.String("actor", "", "Actor performing this action (required)")
	flagValue := fs.Bool("flag", true, "Pinned flag value")
	reason := fs.String("reason", "", "Optional reason")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *eventID == 0 || strings.TrimSpace(*actor) == "" {
		fmt.Fprintln(os.Stderr, "--event-id and --actor are required")
		return 2
	}

	ctx, handler, cleanup, err := buildEditorialHandler(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cleanup()

	var reasonPtr *string
	if strings.TrimSpace(*reason) != "" {
		reasonPtr = reason
	}
	if err := handler.Pin(ctx, *actor, *eventID, *flagValue, reasonPtr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("event %d pinned=%t\n", *eventID, *flagValue)
	return 0
}

func runEditorialSetSignificance(args []string) int {
	fs := flag.NewFlagSet("editorial set-significance", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	eventID := fs.Int64("event-id", 0, "Event id (required)")
	actor := fs.String("actor", "", "Actor performing this action (required)")
	score := fs.Int("score", -1, "Cultural significance score, 0-10 (required)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *eventID == 0 || strings.TrimSpace(*actor) == "" || *score < 0 {
		fmt.Fprintln(os.Stderr, "--event-id, --actor, and --score are required")
		return 2
	}

	ctx, handler, cleanup, err := buildEditorialHandler(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cleanup()

	if err := handler.SetSignificance(ctx, *actor, *eventID, *score); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("event %d cultural_significance=%d\n", *eventID, *score)
	return 0
}

func runEditorialUpdateStatus(args []string) int {
	fs := flag.NewFlagSet("editorial update-status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	eventID := fs.Int64("event-id", 0, "Event id (required)")
	actor := fs.String("actor", "", "Actor performing this action (required)")
	status := fs.String("status", "", "New status (required)")
	sourceURL := fs.String("source-url", "", "Optional source URL backing this status change")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *eventID == 0 || strings.TrimSpace(*actor) == "" || strings.TrimSpace(*status) == "" {
		fmt.Fprintln(os.Stderr, "--event-id, --actor, and --status are required")
		return 2
	}

	ctx, handler, cleanup, err := buildEditorialHandler(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cleanup()

	var urlPtr *string
	if strings.TrimSpace(*sourceURL) != "" {
		urlPtr = sourceURL
	}
	if err := handler.UpdateStatus(ctx, *actor, *eventID, *status, urlPtr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("event %d status=%s\n", *eventID, *status)
	return 0
}

func runEditorialMerge(args []string) int {
	fs := flag.NewFlagSet("editorial merge", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	keepID := fs.Int64("keep-id", 0, "Event id to keep (required)")
	loseID := fs.Int64("lose-id", 0, "Event id to merge away (required)")
	actor := fs.String("actor", "", "Actor performing this action (required)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *keepID == 0 || *loseID == 0 || strings.TrimSpace(*actor) == "" {
		fmt.Fprintln(os.Stderr, "--keep-id, --lose-id, and --actor are required")
		return 2
	}

	ctx, handler, cleanup, err := buildEditorialHandler(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cleanup()

	if err := handler.Merge(ctx, *actor, *keepID, *loseID); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("merged event %d into %d\n", *loseID, *keepID)
	return 0
}

func runEditorialArchive(args []string) int {
	fs := flag.NewFlagSet("editorial archive", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	eventID := fs.Int64("event-id", 0, "Event id to archive (required)")
	actor := fs.String("actor", "", "Actor performing this action (required)")
	reason := fs.String("reason", "", "Optional reason")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *eventID == 0 || strings.TrimSpace(*actor) == "" {
		fmt.Fprintln(os.Stderr, "--event-id and --actor are required")
		return 2
	}

	ctx, handler, cleanup, err := buildEditorialHandler(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cleanup()

	var reasonPtr *string
	if strings.TrimSpace(*reason) != "" {
		reasonPtr = reason
	}
	if err := handler.Archive(ctx, *actor, *eventID, reasonPtr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("event %d archived\n", *eventID)
	return 0
}
