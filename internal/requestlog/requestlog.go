// Package requestlog keeps an append-only bounded ring of source
// attempts for diagnostics. It never affects control flow.
package requestlog

import (
	"sync"
	"time"
)

type Entry struct {
	SourceID  string    `json:"source_id"`
	Success   bool      `json:"success"`
	ErrorMsg  string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const DefaultCapacity = 200

// Buffer is a fixed-capacity ring; the oldest entry is dropped once
// full.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
	start   int
	size    int
	now     func() time.Time
}

func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		entries: make([]Entry, capacity),
		now:     time.Now,
	}
}

func (b *Buffer) Record(sourceID string, success bool, errMsg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := Entry{SourceID: sourceID, Success: success, ErrorMsg: errMsg, Timestamp: b.now().UTC()}
	idx := (b.start + b.size) % len(b.entries)
	b.entries[idx] = e
	if b.size < len(b.entries) {
		b.size++
	} else {
		b.start = (b.start + 1) % len(b.entries)
	}
}

// Snapshot returns the entries oldest-first as an independent copy.
func (b *Buffer) Snapshot() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Entry, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.entries[(b.start+i)%len(b.entries)]
	}
	return out
}
