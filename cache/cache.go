// Package cache provides the repository analysis cache with in-memory and
// Redis backends. Backend failures degrade to cache misses so a broken
// cache never fails a session.
package cache

import (
	"context"
	"time"
)

// Cache stores serialized values with a per-entry TTL.
type Cache interface {
	// Get returns the value stored under key. ok is false on a miss,
	// an expired entry, or a backend failure.
	Get(ctx context.Context, key string) (value []byte, ok bool)

	// Set stores value under key for ttl. Best effort: backend failures
	// are swallowed after logging.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)

	// Ping reports backend health.
	Ping(ctx context.Context) error
}

// Stats counts cache traffic since construction.
type Stats struct {
	Hits   int64
	Misses int64
	Sets   int64
}
