package main

import (
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/tablecore/engine/internal/actions"
	"github.com/tablecore/engine/internal/types"
)

func init() {
	rootCmd.AddCommand(createFormCmd)
}

var createFormCmd = &cobra.Command{
	Use:     "create-form",
	GroupID: "objects",
	Short:   "Create a table object using an interactive form",
	Run: func(cmd *cobra.Command, args []string) {
		runCreateForm(cmd)
	},
}

func runCreateForm(cmd *cobra.Command) {
	var kindStr, posStr, containerID, cardsStr string
	var locked bool

	kindOptions := []huh.Option[string]{
		huh.NewOption("Stack", string(types.KindStack)),
		huh.NewOption("Token", string(types.KindToken)),
		huh.NewOption("Zone", string(types.KindZone)),
		huh.NewOption("Mat", string(types.KindMat)),
		huh.NewOption("Counter", string(types.KindCounter)),
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Kind").
				Description("What kind of object to create").
				Options(kindOptions...).
				Value(&kindStr),

			huh.NewInput().
				Title("Position").
				Description("x,y (optional, defaults to 0,0)").
				Placeholder("0,0").
				Value(&posStr),

			huh.NewInput().
				Title("Container").
				Description("Containing object id (optional)").
				Value(&containerID),

			huh.NewInput().
				Title("Cards").
				Description("Comma-separated card ids, stacks only (optional)").
				Value(&cardsStr),

			huh.NewConfirm().
				Title("Create locked?").
				Value(&locked),
		),
	).WithTheme(huh.ThemeDracula())

	if err := form.Run(); err != nil {
		fatal("form cancelled: %v", err)
	}

	sess, err := openSession(actorFlag(cmd), tableFlag(cmd))
	if err != nil {
		fatal("opening table: %v", err)
	}
	defer sess.Close()

	opts := actions.CreateOptions{Kind: types.Kind(kindStr), ContainerID: containerID, Locked: locked}
	if posStr != "" {
		x, y, err := parsePos(posStr)
		if err != nil {
			fatal("invalid position: %v", err)
		}
		opts.Pos = types.Pos{X: x, Y: y}
	}
	if cardsStr != "" {
		opts.Cards = strings.Split(cardsStr, ",")
	}

	id, err := sess.actions.CreateObject(opts)
	if err != nil {
		fatal("creating object: %v", err)
	}
	printResult(cmd, map[string]any{"id": id})
}
