package scribe

import "context"

// Stream uses a pull-based iterator pattern over one session's envelopes.
// Delivery is FIFO and lossless for the lifetime of the connection; there
// is no reconnect and no buffering across connections.
//
// Next() blocks until an envelope arrives or the stream ends. Its error
// return carries the transport outcome:
//   - io.EOF: the producer closed the stream. When no terminal envelope
//     was observed first, the caller synthesizes KindConnection.
//   - wraps ErrProtocol: malformed or out-of-contract frame; the caller
//     escalates to KindInternal rather than dropping it.
//   - wraps ErrStreamClosed: Next called after Close.
//   - anything else: transport failure; the caller synthesizes
//     KindConnection.
//
// Close() is idempotent and unblocks a pending Next.
type Stream interface {
	Next() (Envelope, error)
	Close() error
}

// Transport opens exactly one ordered, unidirectional stream per session
// request. Implementations carry the credential in request metadata when
// the underlying channel supports it, falling back to an addressable
// request parameter when it does not.
//
// Open returns an error wrapping a *SessionError when the producer
// rejected the request outright (bad credential, rate limit, exhausted
// quota); other failures are connection-level.
type Transport interface {
	Open(ctx context.Context, req Request) (Stream, error)
}
