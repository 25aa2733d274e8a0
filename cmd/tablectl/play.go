package main

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/tablecore/engine/internal/actions"
	"github.com/tablecore/engine/internal/interaction"
	"github.com/tablecore/engine/internal/visual"
)

func init() {
	rootCmd.AddCommand(playCmd)
}

var playCmd = &cobra.Command{
	Use:     "play",
	GroupID: "objects",
	Short:   "Drive the interaction state machine live from the keyboard",
	Long: `Launch an interactive bubbletea program over one table: arrow keys
move the list cursor (and hover, once a pointer gesture isn't active), enter
claims the selected object and starts a tentative drag, arrow keys while
dragging move it, 'u' commits the drag, 'esc' cancels, 'p' toggles the
pan/select global mode, 'q' quits.`,
	Run: func(cmd *cobra.Command, args []string) {
		sess, err := openSession(actorFlag(cmd), tableFlag(cmd))
		if err != nil {
			fatal("opening table: %v", err)
		}
		defer sess.Close()

		fsm := interaction.New(sess.actions, sess.store, actorFlag(cmd))
		vis := visual.New()
		vis.Attach(sess.store)
		defer vis.Detach()

		m := newPlayModel(sess.actions, vis, fsm)
		if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
			fatal("play: %v", err)
		}
	},
}

// objectItem adapts a visual.Container into a bubbles/list.DefaultItem.
type objectItem struct {
	visual.Container
}

func (o objectItem) FilterValue() string { return o.ID }
func (o objectItem) Title() string       { return fmt.Sprintf("%s  (%s)", o.ID, o.Kind) }
func (o objectItem) Description() string {
	state := "idle"
	if o.Locked {
		state = "locked"
	} else if o.SelectedBy != "" {
		state = "selected:" + o.SelectedBy
	}
	return fmt.Sprintf("pos=(%.0f,%.0f,%.0f) %s", o.Pos.X, o.Pos.Y, o.Pos.R, state)
}

// dragStep is the world-unit delta one arrow-keypress moves a dragged
// object by — large enough to register past interaction.DragActivationThreshold
// on the very first keypress.
const dragStep = 10.0

// playModel is the live TUI: a bubbles/list.Model for picking a target
// object, wrapping interaction.Model to actually dispatch pointer gestures
// into the FSM (spec.md 4.7, C7), re-rendering the visual manager's scene
// graph (C6) after every change.
type playModel struct {
	eng      *actions.Engine
	vis      *visual.Manager
	im       interaction.Model
	list     list.Model
	status   string
	dragging bool
}

func newPlayModel(eng *actions.Engine, vis *visual.Manager, fsm *interaction.FSM) playModel {
	l := list.New(nil, list.NewDefaultDelegate(), 70, 20)
	l.Title = "table objects"
	m := playModel{eng: eng, vis: vis, im: interaction.NewModel(fsm), list: l, status: "ready"}
	m.refreshItems()
	return m
}

func (m *playModel) refreshItems() {
	containers := m.vis.Ordered()
	items := make([]list.Item, 0, len(containers))
	for _, c := range containers {
		items = append(items, objectItem{c})
	}
	m.list.SetItems(items)
}

func (m playModel) selected() (objectItem, bool) {
	it, ok := m.list.SelectedItem().(objectItem)
	return it, ok
}

func (m playModel) Init() tea.Cmd { return nil }

func (m playModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "enter":
			it, ok := m.selected()
			if !ok {
				return m, nil
			}
			target := interaction.Target{ObjectID: it.ID, Locked: it.Locked, Pos: it.Pos}
			updated, _ := m.im.Update(interaction.PointerMsg{Phase: interaction.PointerDown, Target: target, Pos: it.Pos})
			m.im = updated.(interaction.Model)
			m.dragging = m.im.FSM().Mode() != interaction.ModeIdle
			m.status = fmt.Sprintf("pointer-down on %s -> mode=%s", it.ID, m.im.FSM().Mode())
			return m, nil

		case "u":
			if !m.dragging {
				return m, nil
			}
			updated, _ := m.im.Update(interaction.PointerMsg{Phase: interaction.PointerUp})
			m.im = updated.(interaction.Model)
			m.dragging = false
			m.status = "pointer-up"
			m.refreshItems()
			return m, nil

		case "esc":
			updated, _ := m.im.Update(interaction.PointerMsg{Phase: interaction.PointerCancel})
			m.im = updated.(interaction.Model)
			m.dragging = false
			m.status = "cancelled"
			return m, nil

		case "p":
			updated, _ := m.im.Update(msg)
			m.im = updated.(interaction.Model)
			m.status = fmt.Sprintf("global mode -> %s", m.im.FSM().GlobalMode())
			return m, nil

		case "up", "down", "left", "right":
			if m.dragging {
				it, ok := m.selected()
				if !ok {
					return m, nil
				}
				pos := it.Pos
				switch msg.String() {
				case "up":
					pos.Y -= dragStep
				case "down":
					pos.Y += dragStep
				case "left":
					pos.X -= dragStep
				case "right":
					pos.X += dragStep
				}
				moves := m.im.FSM().PointerMove(pos)
				if len(moves) > 0 {
					m.eng.MoveObjects(moves)
				}
				m.status = "dragging..."
				m.refreshItems()
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	if !m.dragging {
		if it, ok := m.selected(); ok {
			m.im.FSM().SetHovered(it.ID)
		}
	}
	return m, cmd
}

func (m playModel) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.vis.Render(),
		m.list.View(),
		lipgloss.NewStyle().Faint(true).Render("status: "+m.status),
	)
}
