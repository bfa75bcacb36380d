// Package main is the entry point for the scrapemaster CLI.
package main

import (
	"os"

	"github.com/jmylchreest/scrapemaster/cmd/scrapemaster/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
