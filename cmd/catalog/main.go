package main

import (
	"os"

	"gnaoua.dev/catalog/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
