// Package bubbletea provides a Bubble Tea TUI for running a generation
// session against a scribe server.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/scribehq/scribe"
)

// Run executes the Bubble Tea program inline (no alternate screen, so
// the final view stays in the scrollback) and blocks until the session
// resolves or the user quits. It returns the final model state. The
// context is used for graceful shutdown — when cancelled, the program
// quits.
func Run(ctx context.Context, m Model) (Model, error) {
	p := tea.NewProgram(m)
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	final, err := p.Run()
	if err != nil {
		return m, err
	}
	return final.(Model), nil
}

// ProgressMsg delivers a progress event to the Bubble Tea model.
type ProgressMsg struct {
	Progress scribe.Progress
}

// OutcomeMsg delivers the terminal outcome of the session.
type OutcomeMsg struct {
	Outcome scribe.Outcome
}
