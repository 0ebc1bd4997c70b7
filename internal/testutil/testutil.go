// Package testutil provides shared test helpers: scripted fetchers and
// snapshot builders.
package testutil

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/starford/ansuz/internal/knowledge"
)

// FakeFetcher is a scripted knowledge.Fetcher that counts fetches and can
// be flipped into a failure mode.
type FakeFetcher struct {
	Rows  []map[string]string
	Err   error
	calls atomic.Int64
}

// FetchRows implements knowledge.Fetcher.
func (f *FakeFetcher) FetchRows(ctx context.Context) ([]map[string]string, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Rows, nil
}

// Describe implements knowledge.Fetcher.
func (f *FakeFetcher) Describe() string {
	return "fake"
}

// Calls returns how many times FetchRows ran.
func (f *FakeFetcher) Calls() int {
	return int(f.calls.Load())
}

// Row builds a raw source row with the standard headers.
func Row(category, question, answer, priority string) map[string]string {
	return map[string]string{
		"Category": category,
		"Question": question,
		"Answer":   answer,
		"Priority": priority,
	}
}

// Snapshot builds an in-memory snapshot from entries, stamped now.
func Snapshot(entries ...knowledge.Entry) *knowledge.Snapshot {
	return &knowledge.Snapshot{
		Entries:   entries,
		FetchedAt: time.Now(),
	}
}
