package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Interface compliance check.
var _ Cache = (*Memory)(nil)

// Memory is a process-local Cache. Expired entries are reaped lazily on
// Get; there is no background janitor.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

type memEntry struct {
	value   []byte
	expires time.Time
}

// NewMemory returns an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memEntry),
		now:     time.Now,
	}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		m.misses.Add(1)
		return nil, false
	}
	if m.now().After(e.expires) {
		delete(m.entries, key)
		m.misses.Add(1)
		return nil, false
	}
	m.hits.Add(1)
	return e.value, true
}

// Set implements Cache. A non-positive ttl stores nothing.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memEntry{value: value, expires: m.now().Add(ttl)}
	m.sets.Add(1)
}

// Ping implements Cache. The in-process backend is always healthy.
func (m *Memory) Ping(context.Context) error {
	return nil
}

// Stats returns traffic counters.
func (m *Memory) Stats() Stats {
	return Stats{
		Hits:   m.hits.Load(),
		Misses: m.misses.Load(),
		Sets:   m.sets.Load(),
	}
}
