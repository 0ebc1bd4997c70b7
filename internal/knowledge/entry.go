// Package knowledge defines the domain types for Ansuz and the cached
// store that serves immutable snapshots of the knowledge table.
package knowledge

import "time"

// Entry is a single question/answer row from the knowledge table.
// Entries are immutable once loaded.
type Entry struct {
	Category    string    `json:"category"`
	Question    string    `json:"question"`
	Answer      string    `json:"answer"`
	Priority    int       `json:"priority"`
	LastUpdated time.Time `json:"last_updated,omitempty"`
}

// Snapshot is an immutable copy of the knowledge table at a point in time.
// All entries come from a single fetch; a snapshot is replaced wholesale,
// never updated in place. Skipped counts rows dropped during parsing
// because they were missing a question or an answer.
type Snapshot struct {
	Entries   []Entry   `json:"entries"`
	FetchedAt time.Time `json:"fetched_at"`
	Skipped   int       `json:"skipped"`
}

// Empty reports whether the snapshot holds no entries.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.Entries) == 0
}

// Stats summarises the current knowledge base for diagnostics.
type Stats struct {
	TotalQuestions int            `json:"total_questions"`
	Categories     int            `json:"categories"`
	ByCategory     map[string]int `json:"by_category,omitempty"`
	SkippedRows    int            `json:"skipped_rows"`
	FetchedAt      time.Time      `json:"fetched_at"`
	Source         string         `json:"source"`
}
