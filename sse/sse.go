// Package sse implements the session wire protocol over Server-Sent Events.
//
// It provides both halves of the stream: [Client] implements
// [scribe.Transport] for consumers, and [Writer] frames envelopes onto an
// HTTP response for producers. Decoding fails closed: an unknown event tag,
// an unknown stage or a fraction outside [0, 1] surfaces as a protocol
// violation, never as a silently dropped frame.
package sse

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/scribehq/scribe"
)

const (
	eventProgress = "progress"
	eventComplete = "complete"
	eventError    = "error"
)

// Wire shapes. Timestamps travel as RFC3339 strings via time.Time.

type wireProgress struct {
	Stage     string    `json:"stage"`
	Message   string    `json:"message"`
	Fraction  float64   `json:"fraction"`
	Timestamp time.Time `json:"timestamp"`
}

type wireComplete struct {
	Data string `json:"data"`
}

type wireError struct {
	Message   string         `json:"message"`
	ErrorCode string         `json:"error_code"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// decodeFrame maps one framed event to an envelope. Every malformed frame
// is a protocol violation wrapping [scribe.ErrProtocol]; the consumer
// escalates those to KindInternal.
func decodeFrame(event, data string) (scribe.Envelope, error) {
	switch event {
	case eventProgress:
		var w wireProgress
		if err := json.Unmarshal([]byte(data), &w); err != nil {
			return nil, fmt.Errorf("sse: malformed progress frame: %v: %w", err, scribe.ErrProtocol)
		}
		stage := scribe.Stage(w.Stage)
		if !stage.Known() {
			return nil, fmt.Errorf("sse: unknown stage %q: %w", w.Stage, scribe.ErrProtocol)
		}
		if w.Fraction < 0 || w.Fraction > 1 {
			return nil, fmt.Errorf("sse: fraction %g outside [0, 1]: %w", w.Fraction, scribe.ErrProtocol)
		}
		return scribe.Progress{
			Stage:     stage,
			Message:   w.Message,
			Fraction:  w.Fraction,
			Timestamp: w.Timestamp,
		}, nil

	case eventComplete:
		var w wireComplete
		if err := json.Unmarshal([]byte(data), &w); err != nil {
			return nil, fmt.Errorf("sse: malformed complete frame: %v: %w", err, scribe.ErrProtocol)
		}
		return scribe.Completion{Artifact: w.Data}, nil

	case eventError:
		var w wireError
		if err := json.Unmarshal([]byte(data), &w); err != nil {
			return nil, fmt.Errorf("sse: malformed error frame: %v: %w", err, scribe.ErrProtocol)
		}
		return decodeSessionError(w), nil

	default:
		return nil, fmt.Errorf("sse: unknown event %q: %w", event, scribe.ErrProtocol)
	}
}

// decodeSessionError converts the wire error shape to a *scribe.SessionError.
// Unknown codes fail closed to KindInternal. KindConnection is reserved for
// consumer synthesis, so a producer claiming it is out of contract and is
// demoted the same way.
func decodeSessionError(w wireError) *scribe.SessionError {
	kind, ok := scribe.ParseErrorKind(w.ErrorCode)
	if !ok || kind == scribe.KindConnection {
		kind = scribe.KindInternal
	}
	return &scribe.SessionError{
		Kind:      kind,
		Message:   w.Message,
		Details:   w.Details,
		Timestamp: w.Timestamp,
	}
}

// MarshalError renders e in the wire error shape. Producers use it both for
// stream error frames and for the JSON bodies of non-200 rejections, so one
// decoder serves both on the consumer side.
func MarshalError(e *scribe.SessionError) ([]byte, error) {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return json.Marshal(wireError{
		Message:   e.Message,
		ErrorCode: string(e.Kind),
		Details:   e.Details,
		Timestamp: ts,
	})
}
