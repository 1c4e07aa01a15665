package mock_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/scribehq/scribe"
	"github.com/scribehq/scribe/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransport_Open(t *testing.T) {
	t.Parallel()
	t.Run("delegates to OpenFn", func(t *testing.T) {
		t.Parallel()
		var s mock.Stream
		tr := mock.Transport{
			OpenFn: func(ctx context.Context, req scribe.Request) (scribe.Stream, error) {
				assert.Equal(t, "example/repo", req.TargetRef)
				return &s, nil
			},
		}
		got, err := tr.Open(context.Background(), scribe.Request{TargetRef: "example/repo"})
		require.NoError(t, err)
		assert.Equal(t, &s, got)
	})

	t.Run("returns error", func(t *testing.T) {
		t.Parallel()
		wantErr := errors.New("refused")
		tr := mock.Transport{
			OpenFn: func(ctx context.Context, req scribe.Request) (scribe.Stream, error) {
				return nil, wantErr
			},
		}
		_, err := tr.Open(context.Background(), scribe.Request{})
		assert.ErrorIs(t, err, wantErr)
	})

	t.Run("panics when OpenFn not set", func(t *testing.T) {
		t.Parallel()
		tr := mock.Transport{}
		assert.Panics(t, func() {
			_, _ = tr.Open(context.Background(), scribe.Request{})
		})
	})
}

func TestStream_Next(t *testing.T) {
	t.Parallel()
	t.Run("delegates to NextFn", func(t *testing.T) {
		t.Parallel()
		want := scribe.Progress{Stage: scribe.StageInit, Fraction: 0.1}
		s := mock.Stream{
			NextFn: func() (scribe.Envelope, error) {
				return want, nil
			},
		}
		got, err := s.Next()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("returns EOF", func(t *testing.T) {
		t.Parallel()
		s := mock.Stream{
			NextFn: func() (scribe.Envelope, error) {
				return nil, io.EOF
			},
		}
		_, err := s.Next()
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("panics when NextFn not set", func(t *testing.T) {
		t.Parallel()
		s := mock.Stream{}
		assert.Panics(t, func() {
			_, _ = s.Next()
		})
	})
}

func TestStream_Close(t *testing.T) {
	t.Parallel()
	t.Run("delegates to CloseFn", func(t *testing.T) {
		t.Parallel()
		called := false
		s := mock.Stream{
			CloseFn: func() error {
				called = true
				return nil
			},
		}
		require.NoError(t, s.Close())
		assert.True(t, called)
	})

	t.Run("returns nil when CloseFn not set", func(t *testing.T) {
		t.Parallel()
		s := mock.Stream{}
		assert.NoError(t, s.Close())
	})
}

func TestGenerator_Generate(t *testing.T) {
	t.Parallel()
	t.Run("delegates to GenerateFn", func(t *testing.T) {
		t.Parallel()
		g := mock.Generator{
			GenerateFn: func(ctx context.Context, req scribe.Request, report func(scribe.Progress)) (string, error) {
				report(scribe.Progress{Stage: scribe.StageInit})
				return "# Doc", nil
			},
		}
		var seen []scribe.Progress
		artifact, err := g.Generate(context.Background(), scribe.Request{}, func(p scribe.Progress) {
			seen = append(seen, p)
		})
		require.NoError(t, err)
		assert.Equal(t, "# Doc", artifact)
		assert.Len(t, seen, 1)
	})

	t.Run("returns error", func(t *testing.T) {
		t.Parallel()
		wantErr := errors.New("pipeline down")
		g := mock.Generator{
			GenerateFn: func(ctx context.Context, req scribe.Request, report func(scribe.Progress)) (string, error) {
				return "", wantErr
			},
		}
		_, err := g.Generate(context.Background(), scribe.Request{}, func(scribe.Progress) {})
		assert.ErrorIs(t, err, wantErr)
	})

	t.Run("panics when GenerateFn not set", func(t *testing.T) {
		t.Parallel()
		g := mock.Generator{}
		assert.Panics(t, func() {
			_, _ = g.Generate(context.Background(), scribe.Request{}, nil)
		})
	})
}
