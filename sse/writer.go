package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/scribehq/scribe"
)

// Writer frames envelopes onto an HTTP response as SSE events, flushing
// after every frame so the consumer observes progress as it happens.
// Writer methods are for a single handler goroutine; the session protocol
// has one producer per stream.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter prepares w for event streaming: it sets the SSE response
// headers, commits the 200 status and flushes so the consumer sees the
// stream open before the first frame. Fails when the underlying writer
// cannot flush (streaming is impossible through a fully buffered chain).
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("sse: response writer does not support streaming")
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no") // disable proxy buffering
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &Writer{w: w, flusher: flusher}, nil
}

// Progress writes one progress frame. A zero timestamp is stamped with the
// current time.
func (sw *Writer) Progress(p scribe.Progress) error {
	ts := p.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return sw.writeFrame(eventProgress, wireProgress{
		Stage:     string(p.Stage),
		Message:   p.Message,
		Fraction:  p.Fraction,
		Timestamp: ts,
	})
}

// Complete writes the terminal completion frame carrying the artifact.
// The producer closes the connection after it; nothing may follow.
func (sw *Writer) Complete(artifact string) error {
	return sw.writeFrame(eventComplete, wireComplete{Data: artifact})
}

// Error writes the terminal error frame. The producer closes the
// connection after it; nothing may follow.
func (sw *Writer) Error(e *scribe.SessionError) error {
	data, err := MarshalError(e)
	if err != nil {
		return fmt.Errorf("sse: marshal error frame: %w", err)
	}
	return sw.flushFrame(eventError, data)
}

func (sw *Writer) writeFrame(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("sse: marshal %s frame: %w", event, err)
	}
	return sw.flushFrame(event, data)
}

func (sw *Writer) flushFrame(event string, data []byte) error {
	if _, err := fmt.Fprintf(sw.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return fmt.Errorf("sse: write %s frame: %w", event, err)
	}
	sw.flusher.Flush()
	return nil
}
