package interaction

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tablecore/engine/internal/types"
)

// PointerMsg carries a pointer event from the orchestrator into the Elm-
// style Update loop, the same pattern the teacher's interactive prompts
// (internal/ui) drive off bubbletea key/window messages.
type PointerMsg struct {
	Phase  PointerPhase
	Target Target
	Pos    types.Pos
	Mods   Modifiers
}

// PointerPhase names the pointer lifecycle stage carried by a PointerMsg.
type PointerPhase int

const (
	PointerDown PointerPhase = iota
	PointerMove
	PointerUp
	PointerCancel
	PointerLeave
)

// Model adapts FSM to tea.Model so it can be embedded directly in a
// bubbletea program's Update loop.
type Model struct {
	fsm        *FSM
	lastMoves  []moveEvent
	lastRect   *RectResult
}

type moveEvent struct {
	ID  string
	Pos types.Pos
}

// NewModel wraps fsm as a tea.Model.
func NewModel(fsm *FSM) Model { return Model{fsm: fsm} }

// FSM returns the state machine this Model wraps, for callers (the live TUI)
// that need to drive hover state or read PendingOperations directly rather
// than only through tea.Msg dispatch.
func (m Model) FSM() *FSM { return m.fsm }

func (m Model) Init() tea.Cmd { return nil }

// Update dispatches PointerMsg into the FSM and handles one tea.KeyMsg, "p",
// which toggles the pan/select global mode. Other keys are ignored; the
// Space/Cmd/Shift modifiers reach the FSM only as PointerMsg.Mods.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch ev := msg.(type) {
	case PointerMsg:
		switch ev.Phase {
		case PointerDown:
			m.fsm.PointerDown(ev.Target, ev.Pos, ev.Mods)
		case PointerMove:
			moves := m.fsm.PointerMove(ev.Pos)
			m.lastMoves = make([]moveEvent, 0, len(moves))
			for _, mv := range moves {
				m.lastMoves = append(m.lastMoves, moveEvent{ID: mv.ID, Pos: mv.Pos})
			}
		case PointerUp:
			m.lastRect = m.fsm.PointerUp()
		case PointerCancel:
			m.fsm.PointerCancel()
		case PointerLeave:
			m.fsm.PointerLeave()
		}
	case tea.KeyMsg:
		switch ev.String() {
		case "p":
			if m.fsm.GlobalMode() == GlobalModePan {
				m.fsm.SetGlobalMode(GlobalModeSelect)
			} else {
				m.fsm.SetGlobalMode(GlobalModePan)
			}
		}
	}
	return m, nil
}

func (m Model) View() string {
	return "mode: " + string(m.fsm.Mode())
}
