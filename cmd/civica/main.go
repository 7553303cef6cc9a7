// Package main provides the entry point for the civica CLI.
package main

import (
	"os"

	"github.com/civica-ai/civica/cmd/civica/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
