package bubbletea

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/scribehq/scribe"
	"github.com/scribehq/scribe/markdown"
)

var _ tea.Model = Model{}

// Model is the Bubble Tea model for a single generation session. It owns
// a session controller and renders its progress until the session
// resolves.
type Model struct {
	// Spinner animates while the session is live. Exported for test access.
	Spinner spinner.Model

	ctrl  *scribe.Controller
	req   scribe.Request
	msgCh chan tea.Msg

	bar    progress.Model
	theme  markdown.Theme
	styles Styles

	current   scribe.Progress
	started   bool
	cancelled bool
	outcome   *scribe.Outcome
	width     int
	startedAt time.Time
}

// New creates a TUI Model that will run req over transport. The
// controller's handlers feed the Bubble Tea message loop, so all state
// updates happen on the program goroutine.
func New(transport scribe.Transport, req scribe.Request, theme markdown.Theme) Model {
	styles := NewStyles(theme)

	msgCh := make(chan tea.Msg, 256)
	ctrl := scribe.NewController(transport,
		scribe.WithProgressHandler(func(p scribe.Progress) {
			msgCh <- ProgressMsg{Progress: p}
		}),
		scribe.WithOutcomeHandler(func(o scribe.Outcome) {
			msgCh <- OutcomeMsg{Outcome: o}
		}),
	)

	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(styles.Accent),
	)
	bar := progress.New(progress.WithSolidFill(fmt.Sprintf("%d", theme.Progress)))

	return Model{
		Spinner:   sp,
		ctrl:      ctrl,
		req:       req,
		msgCh:     msgCh,
		bar:       bar,
		theme:     theme,
		styles:    styles,
		width:     80,
		startedAt: time.Now(),
	}
}

// Outcome returns the terminal outcome once the session has resolved.
func (m Model) Outcome() (scribe.Outcome, bool) {
	if m.outcome == nil {
		return scribe.Outcome{}, false
	}
	return *m.outcome, true
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.Spinner.Tick, m.submit(), m.listen())
}

// submit starts the session. Submit failures (invalid request, transport
// refusal) never reach the outcome handler, so they are converted to an
// OutcomeMsg here.
func (m Model) submit() tea.Cmd {
	return func() tea.Msg {
		err := m.ctrl.Submit(context.Background(), m.req)
		if err == nil {
			return nil
		}
		var se *scribe.SessionError
		if !errors.As(err, &se) {
			se = &scribe.SessionError{Kind: scribe.KindValidation, Message: err.Error()}
		}
		return OutcomeMsg{Outcome: scribe.Outcome{State: scribe.StateFailed, Err: se}}
	}
}

// listen waits for the next controller event.
func (m Model) listen() tea.Cmd {
	return func() tea.Msg {
		return <-m.msgCh
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		if w := msg.Width - 4; w > 10 {
			m.bar.Width = w
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ProgressMsg:
		m.current = msg.Progress
		m.started = true
		return m, m.listen()

	case OutcomeMsg:
		out := msg.Outcome
		m.outcome = &out
		return m, tea.Quit

	case spinner.TickMsg:
		if m.outcome != nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		if m.outcome == nil && !m.cancelled {
			// First interrupt requests cancellation; the session resolves
			// through the outcome handler. A second interrupt force-quits.
			m.cancelled = true
			ctrl := m.ctrl
			return m, func() tea.Msg {
				ctrl.Cancel()
				return nil
			}
		}
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Accent.Render("scribe"))
	b.WriteString(m.styles.Muted.Render(" · " + m.req.TargetRef))
	b.WriteString("\n\n")

	if m.outcome == nil {
		b.WriteString(m.liveView())
	} else {
		b.WriteString(m.resolvedView())
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) liveView() string {
	var b strings.Builder

	message := m.current.Message
	stageLine := "connecting..."
	if m.started {
		stageLine = fmt.Sprintf("step %d of %d", m.current.Stage.Index()+1, scribe.StageCount)
		if message != "" {
			stageLine += " · " + message
		}
	}
	b.WriteString(m.Spinner.View())
	b.WriteString(stageLine)
	b.WriteString("\n")
	b.WriteString(m.bar.ViewAs(m.current.Fraction))
	b.WriteString("\n")
	elapsed := time.Since(m.startedAt).Round(time.Second)
	if m.cancelled {
		b.WriteString(m.styles.Muted.Render("cancelling..."))
	} else {
		b.WriteString(m.styles.Muted.Render(fmt.Sprintf("%s elapsed · ctrl+c to cancel", elapsed)))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) resolvedView() string {
	switch m.outcome.State {
	case scribe.StateCompleted:
		var b strings.Builder
		b.WriteString(m.styles.Success.Render("✓ " + markdown.Title(m.outcome.Artifact)))
		b.WriteString("\n\n")
		b.WriteString(markdown.Render(m.outcome.Artifact, m.width, m.theme))
		b.WriteString("\n")
		return b.String()

	case scribe.StateCancelled:
		return m.styles.Muted.Render("Generation cancelled.") + "\n"

	default:
		return m.failureView()
	}
}

func (m Model) failureView() string {
	se := m.outcome.Err
	if se == nil {
		se = &scribe.SessionError{Kind: scribe.KindInternal, Message: "session failed"}
	}
	c := scribe.Classify(se.Kind)

	width := m.width - 6
	if width < 20 {
		width = 20
	}
	var b strings.Builder
	b.WriteString(m.styles.Error.Render(wrap(c.Message, width)))
	b.WriteString("\n")
	if se.Message != "" && se.Message != c.Message {
		b.WriteString(m.styles.Muted.Render(wrap(se.Message, width)))
		b.WriteString("\n")
	}
	if remaining, ok := se.TimeRemaining(); ok {
		b.WriteString(m.styles.Muted.Render(fmt.Sprintf("Quota resets in %s.", remaining.Round(time.Second))))
		b.WriteString("\n")
	}
	b.WriteString(wrap(c.Action, width))
	return m.styles.Panel.Render(strings.TrimRight(b.String(), "\n")) + "\n"
}
