package bubbletea

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/scribehq/scribe/markdown"
)

// Styles maps a Theme to lipgloss styles for TUI rendering.
type Styles struct {
	Accent  lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Panel   lipgloss.Style
}

// NewStyles creates Styles from a Theme.
func NewStyles(t markdown.Theme) Styles {
	return Styles{
		Accent:  lipgloss.NewStyle().Foreground(ansiColor(t.Accent)).Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(ansiColor(t.Muted)).Faint(true),
		Success: lipgloss.NewStyle().Foreground(ansiColor(t.Success)),
		Error:   lipgloss.NewStyle().Foreground(ansiColor(t.Error)),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ansiColor(t.Error)).
			Padding(0, 1),
	}
}

func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}
