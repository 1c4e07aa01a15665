package mock

import "github.com/scribehq/scribe"

// Interface compliance check.
var _ scribe.Stream = (*Stream)(nil)

// Stream is a test double for scribe.Stream.
// Set the function fields for the methods you need. NextFn panics when nil
// to catch missing setup. CloseFn is nil-safe (no-op) because controller
// code closes streams unconditionally and tests rarely need custom close
// behavior.
type Stream struct {
	NextFn  func() (scribe.Envelope, error)
	CloseFn func() error
}

// Next delegates to NextFn.
func (s *Stream) Next() (scribe.Envelope, error) {
	return s.NextFn()
}

// Close delegates to CloseFn. Returns nil when CloseFn is not set.
func (s *Stream) Close() error {
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}
