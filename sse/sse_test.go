package sse_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/scribehq/scribe"
	"github.com/scribehq/scribe/sse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sseResponse builds SSE responses for tests.
type sseResponse struct {
	frames []sseFrame
}

type sseFrame struct {
	event string
	data  string
}

func (s sseResponse) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		for _, f := range s.frames {
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", f.event, f.data)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

func happyFrames() sseResponse {
	return sseResponse{frames: []sseFrame{
		{"progress", `{"stage":"init","message":"Starting repository analysis...","fraction":0.0,"timestamp":"2026-08-29T10:00:00Z"}`},
		{"progress", `{"stage":"analysis","message":"Analyzing repository structure...","fraction":0.3,"timestamp":"2026-08-29T10:00:01Z"}`},
		{"progress", `{"stage":"template","message":"Fetching template...","fraction":0.5,"timestamp":"2026-08-29T10:00:02Z"}`},
		{"progress", `{"stage":"generation","message":"Generating document content...","fraction":0.6,"timestamp":"2026-08-29T10:00:03Z"}`},
		{"complete", `{"data":"# Example\n..."}`},
	}}
}

func streamFrom(t *testing.T, resp http.HandlerFunc) scribe.Stream {
	t.Helper()
	srv := httptest.NewServer(resp)
	t.Cleanup(srv.Close)
	client := sse.New(srv.URL)
	stream, err := client.Open(context.Background(), scribe.Request{
		TargetRef:  "example/repo",
		Credential: "tok-1",
	})
	require.NoError(t, err)
	t.Cleanup(func() { stream.Close() })
	return stream
}

func collect(t *testing.T, s scribe.Stream) ([]scribe.Envelope, error) {
	t.Helper()
	var envs []scribe.Envelope
	for {
		env, err := s.Next()
		if err != nil {
			return envs, err
		}
		envs = append(envs, env)
		switch env.(type) {
		case scribe.Completion, *scribe.SessionError:
			return envs, nil
		}
	}
}

func TestStream_HappyPath(t *testing.T) {
	t.Parallel()
	s := streamFrom(t, happyFrames().handler())

	envs, err := collect(t, s)
	require.NoError(t, err)
	require.Len(t, envs, 5)

	first, ok := envs[0].(scribe.Progress)
	require.True(t, ok)
	assert.Equal(t, scribe.StageInit, first.Stage)
	assert.Equal(t, "Starting repository analysis...", first.Message)
	assert.Equal(t, 0.0, first.Fraction)
	assert.Equal(t, time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC), first.Timestamp)

	done, ok := envs[4].(scribe.Completion)
	require.True(t, ok)
	assert.Equal(t, "# Example\n...", done.Artifact)

	// The stream ends cleanly after the terminal envelope.
	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
}

func TestStream_ErrorFrame(t *testing.T) {
	t.Parallel()
	resp := sseResponse{frames: []sseFrame{
		{"error", `{"message":"bad ref","error_code":"VALIDATION_ERROR","timestamp":"2026-08-29T10:00:00Z"}`},
	}}
	s := streamFrom(t, resp.handler())

	envs, err := collect(t, s)
	require.NoError(t, err)
	require.Len(t, envs, 1)

	se, ok := envs[0].(*scribe.SessionError)
	require.True(t, ok)
	assert.Equal(t, scribe.KindValidation, se.Kind)
	assert.Equal(t, "bad ref", se.Message)
}

func TestStream_ErrorFrameDetails(t *testing.T) {
	t.Parallel()
	resp := sseResponse{frames: []sseFrame{
		{"error", `{"message":"token balance exhausted","error_code":"INSUFFICIENT_TOKENS","details":{"time_remaining":3600},"timestamp":"2026-08-29T10:00:00Z"}`},
	}}
	s := streamFrom(t, resp.handler())

	envs, err := collect(t, s)
	require.NoError(t, err)
	se, ok := envs[0].(*scribe.SessionError)
	require.True(t, ok)
	assert.Equal(t, scribe.KindInsufficientTokens, se.Kind)
	remaining, ok := se.TimeRemaining()
	require.True(t, ok)
	assert.Equal(t, time.Hour, remaining)
}

func TestStream_FailClosedDecoding(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		frame sseFrame
	}{
		{"unknown event tag", sseFrame{"shutdown", `{}`}},
		{"unknown stage", sseFrame{"progress", `{"stage":"warmup","fraction":0.1}`}},
		{"negative fraction", sseFrame{"progress", `{"stage":"init","fraction":-0.1}`}},
		{"fraction above one", sseFrame{"progress", `{"stage":"init","fraction":1.5}`}},
		{"malformed progress json", sseFrame{"progress", `{"stage":`}},
		{"malformed complete json", sseFrame{"complete", `not json`}},
		{"malformed error json", sseFrame{"error", `{{`}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := streamFrom(t, sseResponse{frames: []sseFrame{tc.frame}}.handler())
			_, err := s.Next()
			assert.ErrorIs(t, err, scribe.ErrProtocol)
		})
	}
}

func TestStream_UnknownErrorCodeFailsClosed(t *testing.T) {
	t.Parallel()
	resp := sseResponse{frames: []sseFrame{
		{"error", `{"message":"weird","error_code":"GREMLINS"}`},
	}}
	s := streamFrom(t, resp.handler())

	env, err := s.Next()
	require.NoError(t, err)
	se, ok := env.(*scribe.SessionError)
	require.True(t, ok)
	assert.Equal(t, scribe.KindInternal, se.Kind)
	assert.Equal(t, "weird", se.Message)
}

func TestStream_ProducerCannotClaimConnectionError(t *testing.T) {
	t.Parallel()
	resp := sseResponse{frames: []sseFrame{
		{"error", `{"message":"nope","error_code":"CONNECTION_ERROR"}`},
	}}
	s := streamFrom(t, resp.handler())

	env, err := s.Next()
	require.NoError(t, err)
	se, ok := env.(*scribe.SessionError)
	require.True(t, ok)
	assert.Equal(t, scribe.KindInternal, se.Kind)
}

func TestStream_EOFWithoutTerminal(t *testing.T) {
	t.Parallel()
	// Zero frames, then the producer closes the connection.
	s := streamFrom(t, sseResponse{}.handler())

	_, err := s.Next()
	assert.Equal(t, io.EOF, err)
}

func TestStream_DropMidStream(t *testing.T) {
	t.Parallel()
	s := streamFrom(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "event: progress\ndata: {\"stage\":\"init\",\"fraction\":0.1}\n\n")
		// Connection drops here without a terminal frame.
	})

	env, err := s.Next()
	require.NoError(t, err)
	assert.IsType(t, scribe.Progress{}, env)

	_, err = s.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStream_IgnoresCommentsAndBlankFrames(t *testing.T) {
	t.Parallel()
	s := streamFrom(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, ": keepalive\n\n")
		fmt.Fprint(w, "event: complete\ndata: {\"data\":\"done\"}\n\n")
	})

	env, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, scribe.Completion{Artifact: "done"}, env)
}

func TestStream_NextAfterClose(t *testing.T) {
	t.Parallel()
	s := streamFrom(t, happyFrames().handler())
	require.NoError(t, s.Close())
	require.NoError(t, s.Close()) // idempotent

	_, err := s.Next()
	assert.ErrorIs(t, err, scribe.ErrStreamClosed)
}

func TestClient_ValidatesBeforeOpening(t *testing.T) {
	t.Parallel()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	t.Cleanup(srv.Close)

	client := sse.New(srv.URL)
	_, err := client.Open(context.Background(), scribe.Request{TargetRef: ""})
	assert.ErrorIs(t, err, scribe.ErrValidation)
	assert.Zero(t, calls, "no network round-trip for a locally detectable error")
}

func TestClient_CredentialPlacement(t *testing.T) {
	t.Parallel()
	t.Run("header by default", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			assert.Empty(t, r.URL.Query().Get("token"))
			sseResponse{}.handler()(w, r)
		}))
		t.Cleanup(srv.Close)

		s, err := sse.New(srv.URL).Open(context.Background(), scribe.Request{TargetRef: "example/repo", Credential: "tok-1"})
		require.NoError(t, err)
		s.Close()
	})

	t.Run("query parameter fallback", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.Header.Get("Authorization"))
			assert.Equal(t, "tok-1", r.URL.Query().Get("token"))
			sseResponse{}.handler()(w, r)
		}))
		t.Cleanup(srv.Close)

		s, err := sse.New(srv.URL, sse.WithQueryCredential()).Open(context.Background(), scribe.Request{TargetRef: "example/repo", Credential: "tok-1"})
		require.NoError(t, err)
		s.Close()
	})
}

func TestClient_RequestParameters(t *testing.T) {
	t.Parallel()
	tmpl := 7
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "example/repo", q.Get("repo_url"))
		assert.Equal(t, "7", q.Get("template_id"))
		assert.Equal(t, "My Project", q.Get("title"))
		sseResponse{}.handler()(w, r)
	}))
	t.Cleanup(srv.Close)

	s, err := sse.New(srv.URL).Open(context.Background(), scribe.Request{
		TargetRef:  "example/repo",
		TemplateID: &tmpl,
		Title:      "My Project",
		Credential: "tok-1",
	})
	require.NoError(t, err)
	s.Close()
}

func TestClient_HTTPErrorBodyMapping(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name     string
		status   int
		body     string
		wantKind scribe.ErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"missing or unknown credential","error_code":"VALIDATION_ERROR","timestamp":"2026-08-29T10:00:00Z"}`, scribe.KindValidation},
		{"rate limited", http.StatusTooManyRequests, `{"message":"too many requests","error_code":"RATE_LIMIT_EXCEEDED","details":{"time_remaining":60},"timestamp":"2026-08-29T10:00:00Z"}`, scribe.KindRateLimit},
		{"quota exhausted", http.StatusForbidden, `{"message":"token balance exhausted","error_code":"INSUFFICIENT_TOKENS","details":{"time_remaining":10800},"timestamp":"2026-08-29T10:00:00Z"}`, scribe.KindInsufficientTokens},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			}))
			t.Cleanup(srv.Close)

			_, err := sse.New(srv.URL).Open(context.Background(), scribe.Request{TargetRef: "example/repo", Credential: "tok-1"})
			require.Error(t, err)
			var se *scribe.SessionError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.wantKind, se.Kind)
			assert.NotEmpty(t, se.Message)
		})
	}
}

func TestClient_HTTPErrorWithoutWireBody(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	_, err := sse.New(srv.URL).Open(context.Background(), scribe.Request{TargetRef: "example/repo"})
	require.Error(t, err)
	var se *scribe.SessionError
	assert.False(t, errors.As(err, &se))
	assert.Contains(t, err.Error(), "502")
}

func TestMarshalError_RoundTrip(t *testing.T) {
	t.Parallel()
	in := &scribe.SessionError{
		Kind:      scribe.KindRateLimit,
		Message:   "too many requests",
		Details:   map[string]any{"time_remaining": float64(60)},
		Timestamp: time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC),
	}
	body, err := sse.MarshalError(in)
	require.NoError(t, err)

	// The marshalled body must decode through the stream path unchanged.
	s := streamFrom(t, sseResponse{frames: []sseFrame{{"error", string(body)}}}.handler())
	env, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, in, env)
}
