// Package main provides the tusk command-line tool.
package main

import (
	"os"

	"github.com/cyber-boost/tusktsk/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
