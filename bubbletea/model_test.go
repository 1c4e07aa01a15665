package bubbletea_test

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/scribehq/scribe"
	bt "github.com/scribehq/scribe/bubbletea"
	"github.com/scribehq/scribe/markdown"
	"github.com/scribehq/scribe/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedTransport yields the given envelopes in order, then io.EOF.
func scriptedTransport(envelopes ...scribe.Envelope) *mock.Transport {
	return &mock.Transport{
		OpenFn: func(ctx context.Context, req scribe.Request) (scribe.Stream, error) {
			var mu sync.Mutex
			i := 0
			return &mock.Stream{
				NextFn: func() (scribe.Envelope, error) {
					mu.Lock()
					defer mu.Unlock()
					if i >= len(envelopes) {
						return nil, io.EOF
					}
					env := envelopes[i]
					i++
					return env, nil
				},
			}, nil
		},
	}
}

// blockedTransport never yields an envelope until the stream is closed.
func blockedTransport() *mock.Transport {
	return &mock.Transport{
		OpenFn: func(ctx context.Context, req scribe.Request) (scribe.Stream, error) {
			release := make(chan struct{})
			return &mock.Stream{
				NextFn: func() (scribe.Envelope, error) {
					<-release
					return nil, scribe.ErrStreamClosed
				},
				CloseFn: func() error {
					select {
					case <-release:
					default:
						close(release)
					}
					return nil
				},
			}, nil
		},
	}
}

func newModel(transport scribe.Transport) bt.Model {
	req := scribe.Request{TargetRef: "example/repo", Credential: "tok-1"}
	return bt.New(transport, req, markdown.DefaultTheme())
}

func TestNew(t *testing.T) {
	t.Parallel()

	m := newModel(scriptedTransport())

	_, resolved := m.Outcome()
	assert.False(t, resolved)
	view := m.View()
	assert.Contains(t, view, "scribe")
	assert.Contains(t, view, "example/repo")
	assert.Contains(t, view, "connecting")
}

func TestModel_Update(t *testing.T) {
	t.Parallel()

	t.Run("progress event updates stage line", func(t *testing.T) {
		t.Parallel()

		m := newModel(scriptedTransport())
		updated, _ := m.Update(bt.ProgressMsg{Progress: scribe.Progress{
			Stage:    scribe.StageAnalysis,
			Message:  "Analyzing repository structure...",
			Fraction: 0.3,
		}})
		model, ok := updated.(bt.Model)
		require.True(t, ok)

		view := model.View()
		assert.Contains(t, view, "step 2 of 4")
		assert.Contains(t, view, "Analyzing repository structure...")
	})

	t.Run("completion renders document preview", func(t *testing.T) {
		t.Parallel()

		m := newModel(scriptedTransport())
		updated, cmd := m.Update(bt.OutcomeMsg{Outcome: scribe.Outcome{
			State:    scribe.StateCompleted,
			Artifact: "# Example Docs\n\nGenerated body text.",
		}})
		model := updated.(bt.Model)

		require.NotNil(t, cmd)
		assert.Equal(t, tea.QuitMsg{}, cmd())

		out, resolved := model.Outcome()
		require.True(t, resolved)
		assert.Equal(t, scribe.StateCompleted, out.State)

		view := model.View()
		assert.Contains(t, view, "Example Docs")
		assert.Contains(t, view, "Generated body text.")
	})

	t.Run("failure renders classified message and action", func(t *testing.T) {
		t.Parallel()

		m := newModel(scriptedTransport())
		updated, _ := m.Update(bt.OutcomeMsg{Outcome: scribe.Outcome{
			State: scribe.StateFailed,
			Err: &scribe.SessionError{
				Kind:    scribe.KindRateLimit,
				Message: "rate limit exceeded",
			},
		}})
		model := updated.(bt.Model)

		c := scribe.Classify(scribe.KindRateLimit)
		view := model.View()
		for _, word := range []string{"rate", "limit"} {
			assert.Contains(t, view, word)
		}
		// Wrapping may split the text across lines; check a short prefix.
		assert.Contains(t, view, c.Action[:10])
	})

	t.Run("cancelled outcome renders notice", func(t *testing.T) {
		t.Parallel()

		m := newModel(scriptedTransport())
		updated, _ := m.Update(bt.OutcomeMsg{Outcome: scribe.Outcome{State: scribe.StateCancelled}})
		model := updated.(bt.Model)

		assert.Contains(t, model.View(), "Generation cancelled.")
	})

	t.Run("first interrupt cancels, second quits", func(t *testing.T) {
		t.Parallel()

		m := newModel(scriptedTransport())
		updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		model := updated.(bt.Model)
		require.NotNil(t, cmd)
		assert.Nil(t, cmd())
		assert.Contains(t, model.View(), "cancelling")

		_, cmd = model.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		require.NotNil(t, cmd)
		assert.Equal(t, tea.QuitMsg{}, cmd())
	})

	t.Run("window size adjusts bar width", func(t *testing.T) {
		t.Parallel()

		m := newModel(scriptedTransport())
		updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
		model := updated.(bt.Model)
		assert.NotEmpty(t, model.View())
	})
}

func TestModel_EndToEnd(t *testing.T) {
	t.Run("session resolves to completed", func(t *testing.T) {
		transport := scriptedTransport(
			scribe.Progress{Stage: scribe.StageInit, Message: "Starting repository analysis...", Fraction: 0.0, Timestamp: time.Now()},
			scribe.Progress{Stage: scribe.StageGeneration, Message: "Generating document content...", Fraction: 0.6, Timestamp: time.Now()},
			scribe.Completion{Artifact: "# Example Docs\n\nAll done."},
		)
		m := newModel(transport)

		tm := teatest.NewTestModel(t, m,
			teatest.WithInitialTermSize(80, 24),
		)

		teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
			return bytes.Contains(out, []byte("Example Docs"))
		}, teatest.WithDuration(5*time.Second))

		fm := tm.FinalModel(t, teatest.WithFinalTimeout(5*time.Second))
		final, ok := fm.(bt.Model)
		require.True(t, ok)

		out, resolved := final.Outcome()
		require.True(t, resolved)
		assert.Equal(t, scribe.StateCompleted, out.State)
		assert.Equal(t, "# Example Docs\n\nAll done.", out.Artifact)
	})

	t.Run("interrupt resolves to cancelled", func(t *testing.T) {
		m := newModel(blockedTransport())

		tm := teatest.NewTestModel(t, m,
			teatest.WithInitialTermSize(80, 24),
		)

		teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
			return bytes.Contains(out, []byte("ctrl+c to cancel"))
		}, teatest.WithDuration(5*time.Second))

		tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})

		fm := tm.FinalModel(t, teatest.WithFinalTimeout(5*time.Second))
		final, ok := fm.(bt.Model)
		require.True(t, ok)

		out, resolved := final.Outcome()
		require.True(t, resolved)
		assert.Equal(t, scribe.StateCancelled, out.State)
	})
}
