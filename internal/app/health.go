package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"gnaoua.dev/catalog/internal/cli"
)

func runHealth(args []string) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	ctx, cancel, pool, err := connectReadPool(10*time.Second, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	var ok int
	if err := pool.QueryRow(ctx, `SELECT 1`).Scan(&ok); err != nil {
		fmt.Fprintf(os.Stderr, "database health check failed: %v\n", err)
		return 1
	}

	fmt.Println("ok")
	return 0
}
