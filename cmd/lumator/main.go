package main

import (
	"fmt"
	"os"

	"lumator/cmd/lumator/commands"
	"lumator/internal/errs"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(errs.ExitCode(err))
	}
}
