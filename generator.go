package scribe

import "context"

// Generator is the producer-side pipeline behind a session. Implementations
// emit zero or more progress reports with non-decreasing stage indices and
// fractions, then return the artifact or an error, and stop promptly once
// ctx is cancelled (the consumer disconnected).
//
// An error that is a *SessionError reaches the consumer as-is; any other
// error is reported as KindInternal.
type Generator interface {
	Generate(ctx context.Context, req Request, report func(Progress)) (string, error)
}
