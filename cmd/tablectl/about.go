package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(aboutCmd)
}

const aboutMarkdown = `# tablectl

A CLI over the collaborative virtual card-table engine.

- **objects**: create, move, select, remove, flip, exhaust, shuffle, list
- **daemon**: start, stop, list background orchestrator processes
- **config**: get, set, list configuration
- **harness**: deterministic wait-for-renderer / wait-for-animations / dump

Run ` + "`tablectl <command> --help`" + ` for details on any command.
`

var aboutCmd = &cobra.Command{
	Use:     "about",
	GroupID: "setup",
	Short:   "Render a short overview of tablectl",
	Run: func(cmd *cobra.Command, args []string) {
		rendered, err := glamour.Render(aboutMarkdown, glamourStyle())
		if err != nil {
			// Fall back to the raw markdown rather than fail the command.
			fmt.Fprint(os.Stdout, aboutMarkdown)
			return
		}
		fmt.Fprint(cmd.OutOrStdout(), rendered)
	},
}

// glamourStyle picks a glamour style name from the terminal's actual color
// capability rather than hardcoding "dark" -- termenv.ColorProfile reports
// Ascii for a dumb terminal or a pipe, in which case glamour's "notty" style
// (no ANSI codes at all) renders correctly instead of spraying escape codes
// into redirected output.
func glamourStyle() string {
	if termenv.ColorProfile() == termenv.Ascii {
		return "notty"
	}
	return "dark"
}
