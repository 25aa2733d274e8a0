package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tablecore/engine/internal/actions"
	"github.com/tablecore/engine/internal/types"
)

func init() {
	rootCmd.AddCommand(createCmd, moveCmd, selectCmd, unselectCmd, removeCmd,
		flipCmd, exhaustCmd, shuffleCmd, listCmd)
}

var createCmd = &cobra.Command{
	Use:     "create <kind>",
	GroupID: "objects",
	Short:   "Create a table object",
	Long: `Create a table object of the given kind (stack, token, zone, mat, counter).

Examples:
  tablectl create token --pos 10,20
  tablectl create stack --container zone-1 --cards ace,king,queen`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sess, err := openSession(actorFlag(cmd), tableFlag(cmd))
		if err != nil {
			fatal("opening table: %v", err)
		}
		defer sess.Close()

		kind := types.Kind(args[0])
		if !kind.Valid() {
			fatal("unknown kind %q", args[0])
		}

		opts := actions.CreateOptions{Kind: kind}
		if containerID, _ := cmd.Flags().GetString("container"); containerID != "" {
			opts.ContainerID = containerID
		}
		if posFlag, _ := cmd.Flags().GetString("pos"); posFlag != "" {
			x, y, err := parsePos(posFlag)
			if err != nil {
				fatal("invalid --pos: %v", err)
			}
			opts.Pos = types.Pos{X: x, Y: y}
		}
		if cardsFlag, _ := cmd.Flags().GetString("cards"); cardsFlag != "" {
			opts.Cards = strings.Split(cardsFlag, ",")
		}
		if locked, _ := cmd.Flags().GetBool("locked"); locked {
			opts.Locked = true
		}

		id, err := sess.actions.CreateObject(opts)
		if err != nil {
			fatal("creating object: %v", err)
		}
		printResult(cmd, map[string]any{"id": id})
	},
}

var moveCmd = &cobra.Command{
	Use:     "move <id> <x,y>",
	GroupID: "objects",
	Short:   "Move an object to a new position",
	Args:    cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		sess, err := openSession(actorFlag(cmd), tableFlag(cmd))
		if err != nil {
			fatal("opening table: %v", err)
		}
		defer sess.Close()

		x, y, err := parsePos(args[1])
		if err != nil {
			fatal("invalid position: %v", err)
		}
		sess.actions.MoveObjects([]actions.ObjectMove{{ID: args[0], Pos: types.Pos{X: x, Y: y}}})
		printResult(cmd, map[string]any{"moved": args[0]})
	},
}

var selectCmd = &cobra.Command{
	Use:     "select <id...>",
	GroupID: "objects",
	Short:   "Claim selection of one or more objects",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sess, err := openSession(actorFlag(cmd), tableFlag(cmd))
		if err != nil {
			fatal("opening table: %v", err)
		}
		defer sess.Close()

		result := sess.actions.SelectObjects(args, actorFlag(cmd))
		printResult(cmd, map[string]any{"selected": result.Selected, "failed": result.Failed})
	},
}

var unselectCmd = &cobra.Command{
	Use:     "unselect <id...>",
	GroupID: "objects",
	Short:   "Release selection of one or more objects",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sess, err := openSession(actorFlag(cmd), tableFlag(cmd))
		if err != nil {
			fatal("opening table: %v", err)
		}
		defer sess.Close()

		unselected := sess.actions.UnselectObjects(args, actorFlag(cmd))
		printResult(cmd, map[string]any{"unselected": unselected})
	},
}

var removeCmd = &cobra.Command{
	Use:     "remove <id...>",
	GroupID: "objects",
	Short:   "Remove one or more objects, cascading to their contents",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sess, err := openSession(actorFlag(cmd), tableFlag(cmd))
		if err != nil {
			fatal("opening table: %v", err)
		}
		defer sess.Close()

		removed := sess.actions.RemoveObjects(args)
		printResult(cmd, map[string]any{"removed": removed})
	},
}

var flipCmd = &cobra.Command{
	Use:     "flip <id...>",
	GroupID: "objects",
	Short:   "Toggle face-up state on stacks and tokens",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sess, err := openSession(actorFlag(cmd), tableFlag(cmd))
		if err != nil {
			fatal("opening table: %v", err)
		}
		defer sess.Close()

		flipped := sess.actions.FlipCards(args)
		printResult(cmd, map[string]any{"flipped": flipped})
	},
}

var exhaustCmd = &cobra.Command{
	Use:     "exhaust <id...>",
	GroupID: "objects",
	Short:   "Toggle exhausted rotation on stacks",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sess, err := openSession(actorFlag(cmd), tableFlag(cmd))
		if err != nil {
			fatal("opening table: %v", err)
		}
		defer sess.Close()

		toggled := sess.actions.ExhaustCards(args)
		printResult(cmd, map[string]any{"toggled": toggled})
	},
}

var shuffleCmd = &cobra.Command{
	Use:     "shuffle <id...>",
	GroupID: "objects",
	Short:   "Shuffle the cards within one or more stacks",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sess, err := openSession(actorFlag(cmd), tableFlag(cmd))
		if err != nil {
			fatal("opening table: %v", err)
		}
		defer sess.Close()

		sess.actions.ShuffleCards(args)
		printResult(cmd, map[string]any{"shuffled": args})
	},
}

var listCmd = &cobra.Command{
	Use:     "list",
	GroupID: "objects",
	Short:   "List every object currently on the table",
	Run: func(cmd *cobra.Command, args []string) {
		sess, err := openSession(actorFlag(cmd), tableFlag(cmd))
		if err != nil {
			fatal("opening table: %v", err)
		}
		defer sess.Close()

		all := sess.store.GetAllObjects()
		printResult(cmd, all)
	},
}

func init() {
	createCmd.Flags().String("container", "", "containing object id")
	createCmd.Flags().String("pos", "", "x,y position")
	createCmd.Flags().String("cards", "", "comma-separated card ids (stacks only)")
	createCmd.Flags().Bool("locked", false, "create the object locked")
}

func parsePos(s string) (x, y float64, err error) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected x,y")
	}
	x, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, err
	}
	y, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func printResult(cmd *cobra.Command, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal("encoding result: %v", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}
