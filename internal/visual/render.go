package visual

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Styles, grounded on the teacher's internal/ui table-style convention
// (TableHeaderStyle/TableBorderStyle built from a small named palette).
var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("117"))
	lockedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	hiddenStyle = lipgloss.NewStyle().Faint(true)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Render produces a lipgloss table listing the current scene graph in
// paint order, one row per container. It is the terminal engine's
// equivalent of a frame: a deterministic textual snapshot suitable for the
// test harness and for a live TUI viewport alike.
func (m *Manager) Render() string {
	containers := m.Ordered()
	rows := make([][]string, 0, len(containers))
	for _, c := range containers {
		state := "idle"
		if c.hidden {
			state = "hidden"
		} else if c.Locked {
			state = "locked"
		} else if c.SelectedBy != "" {
			state = "selected:" + c.SelectedBy
		}
		cards := "-"
		if c.Kind == "stack" {
			cards = fmt.Sprintf("%d", c.CardCount)
		}
		rows = append(rows, []string{
			c.ID, string(c.Kind),
			fmt.Sprintf("(%.0f,%.0f,%.0f)", c.Pos.X, c.Pos.Y, c.Pos.R),
			c.SelectedBy, cards, state,
		})
	}

	t := table.New().
		Headers("ID", "Kind", "Pos", "Selected", "Cards", "State").
		Rows(rows...).
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			base := lipgloss.NewStyle().Padding(0, 1)
			if row < 0 || row >= len(containers) {
				return base
			}
			c := containers[row]
			if c.hidden {
				return hiddenStyle.Padding(0, 1)
			}
			if c.Locked {
				return lockedStyle.Padding(0, 1)
			}
			return base
		})

	return headerStyle.Render(fmt.Sprintf("scene (%d objects)", len(containers))) + "\n" + t.String()
}
