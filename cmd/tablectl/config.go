package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tablecore/engine/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configGetCmd, configSetCmd, configListCmd)
}

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "setup",
	Short:   "Inspect or change tablectl configuration",
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a configuration value",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), config.GetString(args[0]))
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Override a configuration value for this process",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		config.Set(args[0], args[1])
		printResult(cmd, map[string]any{"key": args[0], "value": args[1]})
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every configuration setting",
	Run: func(cmd *cobra.Command, args []string) {
		printResult(cmd, config.AllSettings())
	},
}
