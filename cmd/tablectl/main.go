// Command tablectl is the table-engine CLI: one subcommand per action-layer
// operation (C3), plus daemon lifecycle, configuration, and test-harness
// commands. Structured the way the teacher's cmd/bd is — package main,
// cobra.Command variables registered from init(), a single Execute call.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
