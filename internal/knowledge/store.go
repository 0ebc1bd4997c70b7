package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/starford/ansuz/internal/apperr"
)

// Fetcher supplies raw rows from the underlying data source. Rows are
// header-keyed string maps; the store does not care whether they come
// from a local file or a published spreadsheet.
type Fetcher interface {
	FetchRows(ctx context.Context) ([]map[string]string, error)
	// Describe returns a short label for logs and diagnostics.
	Describe() string
}

// Default tuning values, overridable via configuration.
const (
	DefaultCacheDuration = 5 * time.Minute
	DefaultFetchTimeout  = 15 * time.Second
)

// Store owns the current snapshot and refreshes it when it grows stale.
// Refetches are serialized: concurrent callers hitting an expired cache
// share a single in-flight fetch instead of racing their own.
type Store struct {
	fetcher Fetcher
	ttl     time.Duration
	timeout time.Duration
	logger  *slog.Logger

	group singleflight.Group

	mu     sync.RWMutex
	snap   *Snapshot
	forced bool
}

// NewStore creates a store around fetcher. Zero ttl or fetchTimeout fall
// back to the package defaults; a nil logger falls back to slog.Default.
func NewStore(fetcher Fetcher, ttl, fetchTimeout time.Duration, logger *slog.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultCacheDuration
	}
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		fetcher: fetcher,
		ttl:     ttl,
		timeout: fetchTimeout,
		logger:  logger,
	}
}

// Snapshot returns the cached snapshot if it is younger than the cache
// duration, refetching otherwise. When a refetch fails and an older
// snapshot exists, the stale snapshot is returned and the failure is
// logged as a warning; with no prior snapshot the error wraps
// apperr.ErrSourceUnavailable.
func (s *Store) Snapshot(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	snap, forced := s.snap, s.forced
	s.mu.RUnlock()

	if snap != nil && !forced && time.Since(snap.FetchedAt) < s.ttl {
		return snap, nil
	}

	v, err, _ := s.group.Do("refresh", func() (any, error) {
		return s.refresh(ctx)
	})
	if err != nil {
		if snap != nil {
			s.logger.Warn("knowledge: refresh failed, serving stale snapshot",
				slog.String("source", s.fetcher.Describe()),
				slog.String("error", err.Error()),
				slog.Time("fetched_at", snap.FetchedAt))
			return snap, nil
		}
		return nil, err
	}
	return v.(*Snapshot), nil
}

// Invalidate forces the next Snapshot call to refetch regardless of age.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.forced = true
	s.mu.Unlock()
}

// Stats returns diagnostics about the current knowledge base. It uses the
// same snapshot path as queries, so it may trigger a refetch.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[string]int)
	for _, e := range snap.Entries {
		cat := e.Category
		if cat == "" {
			cat = "General"
		}
		byCategory[cat]++
	}

	return &Stats{
		TotalQuestions: len(snap.Entries),
		Categories:     len(byCategory),
		ByCategory:     byCategory,
		SkippedRows:    snap.Skipped,
		FetchedAt:      snap.FetchedAt,
		Source:         s.fetcher.Describe(),
	}, nil
}

// Categories returns the sorted distinct categories of the current snapshot.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var out []string
	for _, e := range snap.Entries {
		if e.Category == "" {
			continue
		}
		if _, ok := seen[e.Category]; ok {
			continue
		}
		seen[e.Category] = struct{}{}
		out = append(out, e.Category)
	}
	sort.Strings(out)
	return out, nil
}

// refresh fetches and parses the table, then swaps the snapshot in
// atomically. A transient fetch failure is retried once; both attempts
// are bounded by the configured timeout.
func (s *Store) refresh(ctx context.Context) (*Snapshot, error) {
	rows, err := s.fetchRows(ctx)
	if err != nil {
		s.logger.Warn("knowledge: fetch failed, retrying once",
			slog.String("source", s.fetcher.Describe()),
			slog.String("error", err.Error()))
		rows, err = s.fetchRows(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", apperr.ErrSourceUnavailable, s.fetcher.Describe(), err)
	}

	entries, skipped := ParseRows(rows)
	snap := &Snapshot{
		Entries:   entries,
		FetchedAt: time.Now(),
		Skipped:   skipped,
	}

	s.mu.Lock()
	s.snap = snap
	s.forced = false
	s.mu.Unlock()

	s.logger.Info("knowledge: snapshot refreshed",
		slog.String("source", s.fetcher.Describe()),
		slog.Int("entries", len(entries)),
		slog.Int("skipped", skipped))
	return snap, nil
}

func (s *Store) fetchRows(ctx context.Context) ([]map[string]string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.fetcher.FetchRows(fetchCtx)
}
