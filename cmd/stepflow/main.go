// Package main provides the entry point for the stepflow CLI.
package main

import (
	"fmt"
	"os"

	"github.com/stepflow/stepflow/cmd/stepflow/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
