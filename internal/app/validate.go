package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	payloadschema "gnaoua.dev/catalog/schema"
)

// runValidate checks manual_import batch files against the event batch
// schema without touching the database, for a CI pipeline or an editor to
// catch a malformed upload before it ever reaches import.
func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	files := fs.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "usage: catalog validate <file.json> [file.json ...]")
		return 2
	}

	exit := 0
	for _, file := range files {
		raw, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", file, err)
			exit = 1
			continue
		}

		batch, err := payloadschema.ValidateEventBatchPayload(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", file, err)
			exit = 1
			continue
		}

		fmt.Printf("%s: ok (%s, %d events)\n", file, strings.TrimSpace(batch.Source.Name), len(batch.Events))
	}
	return exit
}
