package core

// cache.go holds the three fetch caches used by exports:
//
//   - MemoFetcher: process-scoped memo of successful fetches, keyed by URL.
//     Operators clear it to force fresh downloads.
//   - RowCache: results already fetched for a row of an upload session,
//     keyed by (session, row index). Filled by "check data" and by exports.
//   - urlCache: owned by a single export run. Stores failures too, so a URL
//     is requested at most once per run no matter how many rows share it.
//
// None of them evict; entries live until cleared or until their session ends.

import (
	"context"
	"sync"
	"sync/atomic"
)

// MemoFetcher memoizes successful results of another Fetcher.
// Failures are not stored so a later call retries the request.
type MemoFetcher struct {
	next Fetcher

	mu      sync.RWMutex
	entries map[string]*Payload

	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemoFetcher wraps next.
func NewMemoFetcher(next Fetcher) *MemoFetcher {
	return &MemoFetcher{
		next:    next,
		entries: make(map[string]*Payload),
	}
}

// Fetch returns the memoized payload for url or delegates to the wrapped Fetcher.
func (m *MemoFetcher) Fetch(ctx context.Context, url string) FetchResult {
	m.mu.RLock()
	p, ok := m.entries[url]
	m.mu.RUnlock()

	if ok {
		m.hits.Add(1)
		return FetchResult{Payload: p}
	}

	m.misses.Add(1)
	res := m.next.Fetch(ctx, url)
	if res.OK() {
		m.mu.Lock()
		m.entries[url] = res.Payload
		m.mu.Unlock()
	}
	return res
}

// Forget drops the memoized result for url.
func (m *MemoFetcher) Forget(url string) {
	m.mu.Lock()
	delete(m.entries, url)
	m.mu.Unlock()
}

// Clear drops every memoized result and resets the counters.
func (m *MemoFetcher) Clear() {
	m.mu.Lock()
	m.entries = make(map[string]*Payload)
	m.mu.Unlock()
	m.hits.Store(0)
	m.misses.Store(0)
}

// MemoStats is a snapshot of MemoFetcher usage.
type MemoStats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// Stats returns the current entry count and hit/miss counters.
func (m *MemoFetcher) Stats() MemoStats {
	m.mu.RLock()
	n := len(m.entries)
	m.mu.RUnlock()

	return MemoStats{
		Entries: n,
		Hits:    m.hits.Load(),
		Misses:  m.misses.Load(),
	}
}

// RowKey identifies a row within an upload session.
type RowKey struct {
	SessionID string
	Index     int
}

// RowCache stores successful payloads per row. It is safe for concurrent use.
type RowCache struct {
	mu      sync.RWMutex
	entries map[RowKey]*Payload
}

// NewRowCache returns an empty cache.
func NewRowCache() *RowCache {
	return &RowCache{entries: make(map[RowKey]*Payload)}
}

// Get returns the cached payload for key.
func (c *RowCache) Get(key RowKey) (*Payload, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.entries[key]
	return p, ok
}

// Put stores p for key. Nil payloads are ignored.
func (c *RowCache) Put(key RowKey, p *Payload) {
	if p == nil {
		return
	}
	c.mu.Lock()
	c.entries[key] = p
	c.mu.Unlock()
}

// DropSession removes every entry belonging to sessionID.
func (c *RowCache) DropSession(sessionID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k := range c.entries {
		if k.SessionID == sessionID {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Clear removes every entry.
func (c *RowCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[RowKey]*Payload)
	c.mu.Unlock()
}

// Len returns the number of cached rows.
func (c *RowCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// urlCache maps URLs to results for one export run. The mutex only matters
// while the optional prefetch stage runs.
type urlCache struct {
	mu      sync.Mutex
	entries map[string]FetchResult
}

func newURLCache() *urlCache {
	return &urlCache{entries: make(map[string]FetchResult)}
}

func (c *urlCache) get(url string) (FetchResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[url]
	return r, ok
}

func (c *urlCache) put(url string, r FetchResult) {
	c.mu.Lock()
	c.entries[url] = r
	c.mu.Unlock()
}
