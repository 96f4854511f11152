// Package main is the entry point for the pulseboard CLI tool.
package main

import (
	"os"

	"github.com/good-yellow-bee/pulseboard/cmd/pulsectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
