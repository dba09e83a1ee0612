// Package store provides audit sink implementations: in-memory for tests,
// JSON lines on disk, and Redis streams for shared deployments.
package store

import (
	"context"
	"sync"

	"github.com/sweetpotato0/scholarly/safety"
)

// MemorySink keeps records in memory. Intended for tests and the CLI's
// ephemeral runs.
type MemorySink struct {
	mu      sync.Mutex
	records []safety.Record
	closed  bool
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Append stores one record.
func (s *MemorySink) Append(_ context.Context, rec safety.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// Records returns a copy of everything appended so far.
func (s *MemorySink) Records() []safety.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]safety.Record, len(s.records))
	copy(out, s.records)
	return out
}

// Close marks the sink closed. Records stay readable.
func (s *MemorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
