// Package cache provides time-boxed memoization for aggregated
// records, keyed by logical request identity ("price:BTC").
package cache

import (
	"context"
	"sync"
	"time"
)

// Store is the read-through contract the aggregator consults before
// traversal and writes through on success.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

type entry struct {
	payload  []byte
	storedAt time.Time
	ttl      time.Duration
}

// Memory is the default in-process store. Expiry is lazy, checked at
// read time; the key space is one entry per distinct query, so no
// sweep is needed. Concurrent writers to the same key are
// last-writer-wins.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if m.now().Sub(e.storedAt) > e.ttl {
		m.mu.Lock()
		// re-check under the write lock; a fresher write may have landed
		if cur, ok := m.entries[key]; ok && m.now().Sub(cur.storedAt) > cur.ttl {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false
	}
	return e.payload, true
}

func (m *Memory) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	m.mu.Lock()
	m.entries[key] = entry{payload: payload, storedAt: m.now(), ttl: ttl}
	m.mu.Unlock()
	return nil
}

// Keys returns a snapshot of the live (unexpired) keys.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.entries))
	now := m.now()
	for k, e := range m.entries {
		if now.Sub(e.storedAt) <= e.ttl {
			keys = append(keys, k)
		}
	}
	return keys
}
