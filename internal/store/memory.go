// Package store persists export history: one summary per finished export
// run. Fetched data and archives are never stored.
package store

import (
	"context"
	"sync"

	"github.com/JonMunkholm/rowfetch/internal/core"
)

// DefaultMemoryCapacity is the number of records kept by NewMemory(0).
const DefaultMemoryCapacity = 500

// Memory keeps the most recent export records in process memory.
// It is used when no database is configured.
type Memory struct {
	mu       sync.RWMutex
	records  []core.ExportRecord
	capacity int
}

var _ core.HistoryStore = (*Memory)(nil)

// NewMemory returns a store holding at most capacity records.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &Memory{capacity: capacity}
}

// Record appends rec, dropping the oldest record when full.
func (m *Memory) Record(_ context.Context, rec core.ExportRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.records) == m.capacity {
		copy(m.records, m.records[1:])
		m.records = m.records[:len(m.records)-1]
	}
	m.records = append(m.records, rec)
	return nil
}

// Recent returns up to limit records, newest first.
func (m *Memory) Recent(_ context.Context, limit int) ([]core.ExportRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > len(m.records) {
		limit = len(m.records)
	}
	out := make([]core.ExportRecord, 0, limit)
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}
