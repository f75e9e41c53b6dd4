package sequence

import (
	"context"
	"sync"
)

// Memory is an in-process allocator for tests and the sandbox wiring. It
// honours the same (prefix, year) contract as PG but must not be used across
// multiple service instances.
type Memory struct {
	mu   sync.Mutex
	year int
	seqs map[string]int64
}

// NewMemory builds an in-memory allocator pinned to one calendar year.
func NewMemory(year int) *Memory {
	return &Memory{year: year, seqs: make(map[string]int64)}
}

// Next implements Allocator.
func (m *Memory) Next(_ context.Context, prefix string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seqs[prefix]++
	return Format(prefix, m.year, m.seqs[prefix]), nil
}
