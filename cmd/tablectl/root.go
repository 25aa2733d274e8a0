package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tablecore/engine/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "tablectl",
	Short: "Operate a collaborative virtual card-table engine",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "objects", Title: "Object Commands:"},
		&cobra.Group{ID: "daemon", Title: "Daemon Commands:"},
		&cobra.Group{ID: "setup", Title: "Setup Commands:"},
		&cobra.Group{ID: "harness", Title: "Test Harness Commands:"},
	)
	rootCmd.PersistentFlags().StringP("actor", "a", "", "actor id to act as (overrides config/env)")
	rootCmd.PersistentFlags().StringP("table", "t", "default", "table id to operate on")
}

// actorFlag resolves the --actor flag, falling back to config's actor
// default, matching the teacher's flag-then-config precedence.
func actorFlag(cmd *cobra.Command) string {
	actor, _ := cmd.Flags().GetString("actor")
	if actor != "" {
		return actor
	}
	return config.GetString("actor")
}

func tableFlag(cmd *cobra.Command) string {
	table, _ := cmd.Flags().GetString("table")
	if table == "" {
		return "default"
	}
	return table
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
