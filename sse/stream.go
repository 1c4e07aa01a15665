package sse

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/scribehq/scribe"
)

// stream implements [scribe.Stream] by parsing SSE frames from an HTTP
// response body. Next is driven from a single goroutine; Close may race
// with a blocked Next and unblocks it by closing the body.
type stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	ctx     context.Context
	closed  atomic.Bool
	done    bool  // a terminal envelope was delivered
	err     error // sticky read or protocol error
}

// Interface compliance check.
var _ scribe.Stream = (*stream)(nil)

func newStream(ctx context.Context, body io.ReadCloser) *stream {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &stream{
		body:    body,
		scanner: sc,
		ctx:     ctx,
	}
}

// Next returns the next envelope in arrival order. After a terminal
// envelope it returns io.EOF; the session protocol never continues past
// one. Errors follow the [scribe.Stream] contract: protocol violations
// wrap scribe.ErrProtocol, a closed stream wraps scribe.ErrStreamClosed,
// and io.EOF before a terminal envelope means the connection dropped.
func (s *stream) Next() (scribe.Envelope, error) {
	switch {
	case s.done:
		return nil, io.EOF
	case s.err != nil:
		return nil, s.err
	case s.closed.Load():
		return nil, fmt.Errorf("sse: %w", scribe.ErrStreamClosed)
	}

	event, data, err := s.readFrame()
	if err != nil {
		s.err = s.readError(err)
		return nil, s.err
	}
	env, err := decodeFrame(event, data)
	if err != nil {
		s.err = err
		return nil, err
	}
	if _, ok := env.(scribe.Progress); !ok {
		s.done = true
	}
	return env, nil
}

// Close closes the underlying response body, unblocking any pending Next.
// Idempotent.
func (s *stream) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.body.Close()
}

// readFrame assembles one SSE frame: "event:" and "data:" lines terminated
// by a blank line. Comment lines (":" prefix) and unknown fields are
// ignored. Multiple data lines join with newlines per the SSE format.
func (s *stream) readFrame() (string, string, error) {
	var event string
	var data strings.Builder

	for s.scanner.Scan() {
		line := s.scanner.Text()

		if line == "" {
			if data.Len() > 0 || event != "" {
				return event, data.String(), nil
			}
			continue
		}
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}

	if err := s.scanner.Err(); err != nil {
		return "", "", err
	}
	// Scanner exhausted without error: the producer closed the connection.
	if data.Len() > 0 || event != "" {
		return event, data.String(), nil
	}
	return "", "", io.EOF
}

// readError normalizes a frame read failure. Reads interrupted by Close or
// by context cancellation surface the session's own termination rather than
// the transport's "use of closed connection" noise.
func (s *stream) readError(err error) error {
	if s.closed.Load() {
		return fmt.Errorf("sse: %w", scribe.ErrStreamClosed)
	}
	if cerr := s.ctx.Err(); cerr != nil {
		return fmt.Errorf("sse: session context: %w", cerr)
	}
	if err == io.EOF {
		return io.EOF
	}
	return fmt.Errorf("sse: read frame: %w", err)
}
