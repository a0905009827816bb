package core

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
)

// countingFetcher serves canned results and counts calls per URL.
type countingFetcher struct {
	mu      sync.Mutex
	calls   map[string]int
	results map[string]FetchResult
}

func newCountingFetcher(results map[string]FetchResult) *countingFetcher {
	return &countingFetcher{calls: make(map[string]int), results: results}
}

func (f *countingFetcher) Fetch(_ context.Context, url string) FetchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++
	if res, ok := f.results[url]; ok {
		return res
	}
	return fetchFailed(url, ReasonNetwork, nil)
}

func (f *countingFetcher) Calls(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func (f *countingFetcher) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func okResult(cols []string, records ...[]any) FetchResult {
	return FetchResult{Payload: &Payload{Columns: cols, Records: records}}
}

// ----------------------------------------------------------------------------
// MemoFetcher Tests
// ----------------------------------------------------------------------------

func TestMemoFetcher_MemoizesSuccess(t *testing.T) {
	inner := newCountingFetcher(map[string]FetchResult{
		"http://a": okResult([]string{"x"}, []any{int64(1)}),
	})
	memo := NewMemoFetcher(inner)
	ctx := context.Background()

	first := memo.Fetch(ctx, "http://a")
	second := memo.Fetch(ctx, "http://a")

	if !first.OK() || !second.OK() {
		t.Fatalf("expected both fetches to succeed: %+v %+v", first, second)
	}
	if first.Payload != second.Payload {
		t.Error("second fetch should return the memoized payload")
	}
	if got := inner.Calls("http://a"); got != 1 {
		t.Errorf("inner calls = %d, want 1", got)
	}

	stats := memo.Stats()
	if stats.Entries != 1 || stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Stats() = %+v, want 1 entry, 1 hit, 1 miss", stats)
	}
}

func TestMemoFetcher_DoesNotMemoizeFailure(t *testing.T) {
	inner := newCountingFetcher(nil)
	memo := NewMemoFetcher(inner)
	ctx := context.Background()

	memo.Fetch(ctx, "http://down")
	res := memo.Fetch(ctx, "http://down")

	if res.OK() {
		t.Fatal("expected failure")
	}
	if got := inner.Calls("http://down"); got != 2 {
		t.Errorf("inner calls = %d, want 2 (failures retried)", got)
	}
	if got := memo.Stats().Entries; got != 0 {
		t.Errorf("Entries = %d, want 0", got)
	}
}

func TestMemoFetcher_ForgetAndClear(t *testing.T) {
	inner := newCountingFetcher(map[string]FetchResult{
		"http://a": okResult([]string{"x"}, []any{"a"}),
		"http://b": okResult([]string{"x"}, []any{"b"}),
	})
	memo := NewMemoFetcher(inner)
	ctx := context.Background()

	memo.Fetch(ctx, "http://a")
	memo.Fetch(ctx, "http://b")

	memo.Forget("http://a")
	memo.Fetch(ctx, "http://a")
	memo.Fetch(ctx, "http://b")

	if got := inner.Calls("http://a"); got != 2 {
		t.Errorf("calls for forgotten URL = %d, want 2", got)
	}
	if got := inner.Calls("http://b"); got != 1 {
		t.Errorf("calls for kept URL = %d, want 1", got)
	}

	memo.Clear()
	if stats := memo.Stats(); stats != (MemoStats{}) {
		t.Errorf("Stats() after Clear = %+v, want zero", stats)
	}
	memo.Fetch(ctx, "http://b")
	if got := inner.Calls("http://b"); got != 2 {
		t.Errorf("calls after Clear = %d, want 2", got)
	}
}

func TestMemoFetcher_ConcurrentAccess(t *testing.T) {
	var calls atomic.Int64
	memo := NewMemoFetcher(FetcherFunc(func(_ context.Context, url string) FetchResult {
		calls.Add(1)
		return okResult([]string{"u"}, []any{url})
	}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if res := memo.Fetch(context.Background(), "http://shared"); !res.OK() {
				t.Errorf("fetch failed: %+v", res.Failure)
			}
		}()
	}
	wg.Wait()

	if got := memo.Stats().Entries; got != 1 {
		t.Errorf("Entries = %d, want 1", got)
	}
	if got := calls.Load(); got < 1 || got > 50 {
		t.Errorf("inner calls = %d, want between 1 and 50", got)
	}
}

// ----------------------------------------------------------------------------
// RowCache Tests
// ----------------------------------------------------------------------------

func TestRowCache(t *testing.T) {
	c := NewRowCache()
	p := &Payload{Columns: []string{"a"}, Records: [][]any{{"x"}}}

	c.Put(RowKey{SessionID: "s1", Index: 0}, p)
	c.Put(RowKey{SessionID: "s1", Index: 1}, p)
	c.Put(RowKey{SessionID: "s2", Index: 0}, p)
	c.Put(RowKey{SessionID: "s2", Index: 1}, nil)

	if got := c.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3 (nil ignored)", got)
	}

	if got, ok := c.Get(RowKey{SessionID: "s1", Index: 1}); !ok || got != p {
		t.Errorf("Get(s1,1) = %v, %v; want cached payload", got, ok)
	}
	if _, ok := c.Get(RowKey{SessionID: "s1", Index: 2}); ok {
		t.Error("Get(s1,2) should miss")
	}

	if n := c.DropSession("s1"); n != 2 {
		t.Errorf("DropSession(s1) = %d, want 2", n)
	}
	if _, ok := c.Get(RowKey{SessionID: "s2", Index: 0}); !ok {
		t.Error("other session's entry should survive DropSession")
	}

	c.Clear()
	if got := c.Len(); got != 0 {
		t.Errorf("Len() after Clear = %d, want 0", got)
	}
}
