package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tablecore/engine/internal/animation"
	"github.com/tablecore/engine/internal/awareness"
	"github.com/tablecore/engine/internal/config"
	"github.com/tablecore/engine/internal/interaction"
	"github.com/tablecore/engine/internal/logging"
	"github.com/tablecore/engine/internal/orchestrator"
	"github.com/tablecore/engine/internal/types"
	"github.com/tablecore/engine/internal/visual"
)

// daemonLogWriter builds the daemon's durable log destination: a
// lumberjack.Logger rotating at ~10MB with 3 backups kept, so a daemon left
// running for days doesn't grow an unbounded log file the way writing
// straight to os.Stderr would.
func daemonLogWriter(tableID string) *lumberjack.Logger {
	dir := config.GetString("persistence.dir")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		dir = filepath.Join(home, ".tablecore", "tables")
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, "daemon-"+tableID+".log"),
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
	}
}

func init() {
	daemonCmd.AddCommand(daemonRunCmd)
	daemonRunCmd.Flags().String("socket", "", "unix socket path (informational; daemon run is foreground-only)")
	daemonRunCmd.Hidden = true
}

// daemonRunCmd is the foreground process `daemon start` execs into: it
// assembles the full orchestrator Engine (C1-C9) for one table, keeps it
// alive, flushes a snapshot to the persistence adapter periodically and on
// SIGTERM/SIGINT, grounded on the teacher's own foreground-daemon shape
// (cmd/bd/daemon_autostart.go spawns the same binary with a "--start"
// flag, which runs until signaled).
var daemonRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the orchestrator for a table in the foreground (internal)",
	Run: func(cmd *cobra.Command, args []string) {
		tableID := tableFlag(cmd)
		sess, err := openSession(actorFlag(cmd), tableID)
		if err != nil {
			fatal("opening table: %v", err)
		}
		defer sess.Close()

		lj := daemonLogWriter(tableID)
		defer lj.Close()
		daemonLog := logging.NewTo(lj, "[DAEMON]").Force(true)

		aw := awareness.New()
		sched := animation.New(animation.SinkFunc(func(string, types.PropertyType, types.Value2D, float64, float64) {}))
		vis := visual.New()
		fsm := interaction.New(sess.actions, sess.store, actorFlag(cmd))

		bus := orchestrator.New(64, orchestrator.ErrorIsolation(), orchestrator.Logging(false))
		orch := orchestrator.Wire(bus, sess.store, aw, sched, vis, fsm, nil)
		bus.Run()
		defer orch.Close()

		daemonLog.Debugf("orchestrator running for table %s (pid %d)", tableID, os.Getpid())

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := sess.persist.Persist(tableID, sess.store.Snapshot()); err != nil {
					daemonLog.Debugf("periodic flush failed: %v", err)
				}
			case <-sigCh:
				daemonLog.Debugf("shutting down")
				return
			}
		}
	},
}
