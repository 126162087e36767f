package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "ingest", "run-once":
		return runIngest(args[1:])
	case "import":
		return runImport(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "confidence":
		return runConfidence(args[1:])
	case "reindex":
		return runReindex(args[1:])
	case "gc":
		return runGC(args[1:])
	case "editorial":
		return runEditorial(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "catalog CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  catalog <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health      Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  ingest      Fetch, normalize, resolve, and merge every active source")
	fmt.Fprintln(os.Stderr, "  run-once    Alias for ingest")
	fmt.Fprintln(os.Stderr, "  import      Load a manual_import batch file and run it through the pipeline")
	fmt.Fprintln(os.Stderr, "  validate    Validate manual_import batch files against the event schema")
	fmt.Fprintln(os.Stderr, "  confidence  Recompute confidence_score for stale events")
	fmt.Fprintln(os.Stderr, "  reindex     Rebuild the search collection from catalog.events")
	fmt.Fprintln(os.Stderr, "  gc          Purge stale candidates and drain the search retry queue")
	fmt.Fprintln(os.Stderr, "  editorial   Run a human-operated event command (verify, pin, merge, ...)")
	fmt.Fprintln(os.Stderr, "  serve       Start the editorial command API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"catalog <command> -h\" for command-specific flags.")
}
