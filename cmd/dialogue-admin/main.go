// Package main provides the entry point for the dialogue-admin CLI.
package main

import (
	"fmt"
	"os"

	"dialogue-backend/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
