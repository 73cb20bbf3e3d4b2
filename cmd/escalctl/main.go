// Package main is the entry point for the escalctl CLI tool.
package main

import (
	"os"

	"github.com/safetrack-hq/escalator/cmd/escalctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
