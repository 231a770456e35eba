// Package main provides the checklist command.
package main

import (
	"os"

	"github.com/nhle/checklist/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
