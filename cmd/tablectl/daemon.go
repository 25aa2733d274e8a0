package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tablecore/engine/internal/daemon"
)

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.AddCommand(daemonStartCmd, daemonStopCmd, daemonListCmd)
}

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: "daemon",
	Short:   "Manage background orchestrator processes",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a background orchestrator for a table",
	Run: func(cmd *cobra.Command, args []string) {
		tableID := tableFlag(cmd)
		reg, err := daemon.NewRegistry()
		if err != nil {
			fatal("opening registry: %v", err)
		}
		if existing, ok, err := reg.Find(tableID); err == nil && ok {
			printResult(cmd, map[string]any{"already_running": true, "pid": existing.PID})
			return
		}

		socketPath, _ := cmd.Flags().GetString("socket")
		if socketPath == "" {
			socketPath = fmt.Sprintf("/tmp/tablectl-%s.sock", tableID)
		}

		proc, err := daemon.Spawn(daemon.SpawnOptions{
			Args: []string{"daemon", "run", "--table", tableID, "--socket", socketPath},
		})
		if err != nil {
			fatal("starting daemon: %v", err)
		}

		if err := reg.Register(daemon.Entry{
			TableID:    tableID,
			SocketPath: socketPath,
			PID:        proc.Pid,
			StartedAt:  time.Now(),
		}); err != nil {
			fatal("registering daemon: %v", err)
		}
		printResult(cmd, map[string]any{"started": true, "pid": proc.Pid, "socket": socketPath})
	},
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background orchestrator for a table",
	Run: func(cmd *cobra.Command, args []string) {
		tableID := tableFlag(cmd)
		reg, err := daemon.NewRegistry()
		if err != nil {
			fatal("opening registry: %v", err)
		}
		entry, ok, err := reg.Find(tableID)
		if err != nil {
			fatal("finding daemon: %v", err)
		}
		if !ok {
			printResult(cmd, map[string]any{"stopped": false, "reason": "not running"})
			return
		}
		if err := daemon.Stop(entry.PID, 5*time.Second); err != nil {
			fatal("stopping daemon: %v", err)
		}
		reg.Unregister(tableID, entry.PID)
		printResult(cmd, map[string]any{"stopped": true})
	},
}

var daemonListCmd = &cobra.Command{
	Use:   "list",
	Short: "List running background orchestrators",
	Run: func(cmd *cobra.Command, args []string) {
		reg, err := daemon.NewRegistry()
		if err != nil {
			fatal("opening registry: %v", err)
		}
		entries, err := reg.List()
		if err != nil {
			fatal("listing daemons: %v", err)
		}
		printResult(cmd, entries)
	},
}

func init() {
	daemonStartCmd.Flags().String("socket", "", "unix socket path (defaults to /tmp/tablectl-<table>.sock)")
}
