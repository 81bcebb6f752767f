// Package main is the entry point for the fintrack CLI.
package main

import (
	"os"

	"fintrack/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
