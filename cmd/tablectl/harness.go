package main

import (
	"github.com/spf13/cobra"

	"github.com/tablecore/engine/internal/actions"
	"github.com/tablecore/engine/internal/animation"
	"github.com/tablecore/engine/internal/awareness"
	"github.com/tablecore/engine/internal/harness"
	"github.com/tablecore/engine/internal/interaction"
	"github.com/tablecore/engine/internal/orchestrator"
	"github.com/tablecore/engine/internal/types"
	"github.com/tablecore/engine/internal/visual"
)

func init() {
	rootCmd.AddCommand(harnessCmd)
	harnessCmd.AddCommand(harnessWaitRendererCmd, harnessWaitAnimationsCmd, harnessDumpCmd,
		harnessResetCmd, harnessClearSelectionsCmd)
}

var harnessCmd = &cobra.Command{
	Use:     "harness",
	GroupID: "harness",
	Short:   "Deterministic test-harness commands (spec.md 4.10)",
}

func buildHarness(cmd *cobra.Command) (*harness.Harness, *actions.Engine, *session) {
	sess, err := openSession(actorFlag(cmd), tableFlag(cmd))
	if err != nil {
		fatal("opening table: %v", err)
	}

	aw := awareness.New()
	sched := animation.New(animation.SinkFunc(func(string, types.PropertyType, types.Value2D, float64, float64) {}))
	vis := visual.New()
	fsm := interaction.New(sess.actions, sess.store, actorFlag(cmd))

	bus := orchestrator.New(16, orchestrator.ErrorIsolation())
	orch := orchestrator.Wire(bus, sess.store, aw, sched, vis, fsm, nil)
	bus.Run()

	return harness.New(orch), sess.actions, sess
}

var harnessWaitRendererCmd = &cobra.Command{
	Use:   "wait-renderer",
	Short: "Block until the bus drains and selection settles, or the frame budget expires",
	Run: func(cmd *cobra.Command, args []string) {
		h, _, sess := buildHarness(cmd)
		defer sess.Close()
		defer h.Engine.Close()
		printResult(cmd, map[string]any{"ready": h.WaitForRenderer()})
	},
}

var harnessWaitAnimationsCmd = &cobra.Command{
	Use:   "wait-animations",
	Short: "Block until no animation is active, or the frame budget expires",
	Run: func(cmd *cobra.Command, args []string) {
		h, _, sess := buildHarness(cmd)
		defer sess.Close()
		defer h.Engine.Close()
		printResult(cmd, map[string]any{"complete": h.WaitForAnimationsComplete()})
	},
}

var harnessDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print every object currently in the table's store",
	Run: func(cmd *cobra.Command, args []string) {
		h, _, sess := buildHarness(cmd)
		defer sess.Close()
		defer h.Engine.Close()
		printResult(cmd, h.GetAllObjects())
	},
}

// harnessResetCmd drives actions.Engine.ResetToTestScene from the shipped
// CLI, the "Reset-to-test-scene (15 objects)" step every scenario in
// spec.md 8 opens with.
var harnessResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the table and recreate the fixed 15-object test scene (spec.md 4.3)",
	Run: func(cmd *cobra.Command, args []string) {
		h, eng, sess := buildHarness(cmd)
		defer sess.Close()
		defer h.Engine.Close()
		if err := eng.ResetToTestScene(); err != nil {
			fatal("harness reset: %v", err)
		}
		printResult(cmd, h.GetAllObjects())
	},
}

var harnessClearSelectionsCmd = &cobra.Command{
	Use:   "clear-selections",
	Short: "Clear every _selectedBy on the table",
	Run: func(cmd *cobra.Command, args []string) {
		h, eng, sess := buildHarness(cmd)
		defer sess.Close()
		defer h.Engine.Close()
		if err := eng.ClearAllSelections(actions.ClearAllSelectionsOptions{}); err != nil {
			fatal("harness clear-selections: %v", err)
		}
		printResult(cmd, h.GetAllObjects())
	},
}
