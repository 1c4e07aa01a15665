package scribe

import "time"

// Envelope is a sealed interface over the three units of stream output.
// Envelopes are purely semantic. Transport failures come from Next()'s
// error return, not from envelopes. The unexported marker method prevents
// external implementations.
type Envelope interface {
	envelope()
}

// Progress reports the pipeline's position within a live session.
type Progress struct {
	Stage     Stage
	Message   string
	Fraction  float64 // in [0, 1], non-decreasing within a session
	Timestamp time.Time
}

func (Progress) envelope() {}

// Completion carries the generated artifact. Terminal: exactly one per
// successful session, and the stream ends after it.
type Completion struct {
	Artifact string
}

func (Completion) envelope() {}

// SessionError is a structured failure, either reported by the producer or
// synthesized by the consumer. Terminal when it arrives as an envelope:
// exactly one per failed session. The same shape is the JSON body of
// non-stream producer rejections (auth, rate limit, quota), so one decoder
// handles both.
type SessionError struct {
	Kind      ErrorKind
	Message   string
	Details   map[string]any // optional; quota failures carry "time_remaining"
	Timestamp time.Time
}

func (*SessionError) envelope() {}

// Error implements the error interface.
func (e *SessionError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

// TimeRemaining returns the retry countdown quota and rate-limit failures
// carry in Details, when present. JSON decoding delivers numbers as
// float64; integer seconds are accepted for hand-built errors.
func (e *SessionError) TimeRemaining() (time.Duration, bool) {
	v, ok := e.Details["time_remaining"]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return time.Duration(n * float64(time.Second)), true
	case int:
		return time.Duration(n) * time.Second, true
	case int64:
		return time.Duration(n) * time.Second, true
	default:
		return 0, false
	}
}

// Interface compliance checks.
var (
	_ Envelope = Progress{}
	_ Envelope = Completion{}
	_ Envelope = (*SessionError)(nil)
	_ error    = (*SessionError)(nil)
)
