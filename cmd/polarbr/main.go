// Package main is the entry point of the polarbr CLI.
package main

import (
	"os"

	"github.com/censolab/polarbr/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
