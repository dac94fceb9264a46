// Package main is the entry point for tmplctl.
// The CLI is the developer terminal tool for interacting with the tmplq API.
package main

import (
	"os"

	"tmplq/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
