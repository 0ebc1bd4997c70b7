package knowledge_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/knowledge"
	"github.com/starford/ansuz/internal/testutil"
)

func testRows() []map[string]string {
	return []map[string]string{
		testutil.Row("HR", "leave policy", "see handbook", "1"),
		testutil.Row("HR", "vacation days", "20 per year", ""),
		testutil.Row("IT", "vpn setup", "use the portal", "bogus"),
		testutil.Row("IT", "", "orphan", "0"),
	}
}

func TestStore_CachesWithinTTL(t *testing.T) {
	fetcher := &testutil.FakeFetcher{Rows: testRows()}
	store := knowledge.NewStore(fetcher, time.Hour, time.Second, nil)

	ctx := context.Background()
	first, err := store.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	second, err := store.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if fetcher.Calls() != 1 {
		t.Errorf("fetch calls = %d, want 1", fetcher.Calls())
	}
	if first != second {
		t.Error("expected the identical cached snapshot")
	}
	if len(first.Entries) != 3 {
		t.Errorf("len(entries) = %d, want 3", len(first.Entries))
	}
	if first.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", first.Skipped)
	}
}

func TestStore_InvalidateForcesRefetch(t *testing.T) {
	fetcher := &testutil.FakeFetcher{Rows: testRows()}
	store := knowledge.NewStore(fetcher, time.Hour, time.Second, nil)

	ctx := context.Background()
	if _, err := store.Snapshot(ctx); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	store.Invalidate()
	if _, err := store.Snapshot(ctx); err != nil {
		t.Fatalf("Snapshot after invalidate: %v", err)
	}

	if fetcher.Calls() != 2 {
		t.Errorf("fetch calls = %d, want 2", fetcher.Calls())
	}
}

func TestStore_NoSnapshotOnFirstFailure(t *testing.T) {
	fetcher := &testutil.FakeFetcher{Err: errors.New("connection refused")}
	store := knowledge.NewStore(fetcher, time.Hour, time.Second, nil)

	_, err := store.Snapshot(context.Background())
	if !errors.Is(err, apperr.ErrSourceUnavailable) {
		t.Fatalf("err = %v, want ErrSourceUnavailable", err)
	}
	// Failed attempt plus one retry.
	if fetcher.Calls() != 2 {
		t.Errorf("fetch calls = %d, want 2", fetcher.Calls())
	}

	// A later successful fetch is cached within the TTL.
	fetcher.Err = nil
	first, err := store.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot after recovery: %v", err)
	}
	second, err := store.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if first != second {
		t.Error("expected cached snapshot after recovery")
	}
}

func TestStore_StaleFallbackOnRefetchFailure(t *testing.T) {
	fetcher := &testutil.FakeFetcher{Rows: testRows()}
	store := knowledge.NewStore(fetcher, time.Hour, time.Second, nil)

	ctx := context.Background()
	fresh, err := store.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	fetcher.Err = errors.New("source down")
	store.Invalidate()

	stale, err := store.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot with stale fallback: %v", err)
	}
	if stale != fresh {
		t.Error("expected the previous snapshot to be served")
	}
}

// flakyFetcher fails a fixed number of times before succeeding.
type flakyFetcher struct {
	failures int32
	rows     []map[string]string
	calls    atomic.Int32
}

func (f *flakyFetcher) FetchRows(ctx context.Context) ([]map[string]string, error) {
	n := f.calls.Add(1)
	if n <= f.failures {
		return nil, fmt.Errorf("transient failure %d", n)
	}
	return f.rows, nil
}

func (f *flakyFetcher) Describe() string { return "flaky" }

func TestStore_RetriesOnceOnTransientFailure(t *testing.T) {
	fetcher := &flakyFetcher{failures: 1, rows: testRows()}
	store := knowledge.NewStore(fetcher, time.Hour, time.Second, nil)

	snap, err := store.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Entries) != 3 {
		t.Errorf("len(entries) = %d, want 3", len(snap.Entries))
	}
	if got := fetcher.calls.Load(); got != 2 {
		t.Errorf("fetch calls = %d, want 2", got)
	}
}

// slowFetcher blocks long enough for concurrent callers to pile up.
type slowFetcher struct {
	rows  []map[string]string
	calls atomic.Int32
}

func (f *slowFetcher) FetchRows(ctx context.Context) ([]map[string]string, error) {
	f.calls.Add(1)
	time.Sleep(100 * time.Millisecond)
	return f.rows, nil
}

func (f *slowFetcher) Describe() string { return "slow" }

func TestStore_ConcurrentCallersShareOneFetch(t *testing.T) {
	fetcher := &slowFetcher{rows: testRows()}
	store := knowledge.NewStore(fetcher, time.Hour, time.Second, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Snapshot(context.Background()); err != nil {
				t.Errorf("Snapshot: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := fetcher.calls.Load(); got != 1 {
		t.Errorf("fetch calls = %d, want 1", got)
	}
}

func TestStore_Stats(t *testing.T) {
	fetcher := &testutil.FakeFetcher{Rows: testRows()}
	store := knowledge.NewStore(fetcher, time.Hour, time.Second, nil)

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalQuestions != 3 {
		t.Errorf("total = %d, want 3", stats.TotalQuestions)
	}
	if stats.Categories != 2 {
		t.Errorf("categories = %d, want 2", stats.Categories)
	}
	if stats.ByCategory["HR"] != 2 || stats.ByCategory["IT"] != 1 {
		t.Errorf("by category = %v", stats.ByCategory)
	}
	if stats.SkippedRows != 1 {
		t.Errorf("skipped = %d, want 1", stats.SkippedRows)
	}
	if stats.Source != "fake" {
		t.Errorf("source = %q, want fake", stats.Source)
	}
}

func TestStore_Categories(t *testing.T) {
	fetcher := &testutil.FakeFetcher{Rows: []map[string]string{
		testutil.Row("IT", "vpn setup", "portal", ""),
		testutil.Row("HR", "leave policy", "handbook", ""),
		testutil.Row("IT", "printer", "tray two", ""),
		testutil.Row("", "misc", "answer", ""),
	}}
	store := knowledge.NewStore(fetcher, time.Hour, time.Second, nil)

	categories, err := store.Categories(context.Background())
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	want := []string{"HR", "IT"}
	if len(categories) != len(want) {
		t.Fatalf("categories = %v, want %v", categories, want)
	}
	for i := range want {
		if categories[i] != want[i] {
			t.Errorf("categories[%d] = %q, want %q", i, categories[i], want[i])
		}
	}
}
