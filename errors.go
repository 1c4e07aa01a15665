package scribe

import "errors"

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a request failed validation.
	ErrValidation = errors.New("validation error")

	// ErrSessionActive indicates Submit was called while a session is live.
	ErrSessionActive = errors.New("session already active")

	// ErrProtocol indicates the producer violated the stream protocol.
	// The consumer escalates it to KindInternal, never drops it.
	ErrProtocol = errors.New("protocol violation")

	// ErrStreamClosed indicates an operation on a closed stream.
	ErrStreamClosed = errors.New("stream closed")
)
