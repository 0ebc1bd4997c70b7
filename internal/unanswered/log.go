// Package unanswered records questions that produced no match, so the
// knowledge table maintainers can see what to add next.
package unanswered

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var header = []string{"asked_at", "user", "question"}

// Log is an append-only CSV log of unanswered questions. A Log with an
// empty path discards everything, which keeps call sites free of nil
// checks when the feature is disabled.
type Log struct {
	path string
	mu   sync.Mutex
}

// New creates a log writing to path. An empty path disables the log.
func New(path string) *Log {
	return &Log{path: path}
}

// Enabled reports whether the log actually writes anywhere.
func (l *Log) Enabled() bool {
	return l != nil && l.path != ""
}

// Append records one unanswered question. The header row is written when
// the file is created.
func (l *Log) Append(askedAt time.Time, user, question string) error {
	if !l.Enabled() {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("unanswered: mkdir: %w", err)
	}

	info, statErr := os.Stat(l.path)
	needHeader := statErr != nil || info.Size() == 0

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("unanswered: open: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if needHeader {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("unanswered: write header: %w", err)
		}
	}
	if err := w.Write([]string{askedAt.UTC().Format(time.RFC3339), user, question}); err != nil {
		return fmt.Errorf("unanswered: write record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("unanswered: flush: %w", err)
	}
	return nil
}

// Count returns the number of logged questions (excluding the header).
func (l *Log) Count() (int, error) {
	if !l.Enabled() {
		return 0, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("unanswered: open: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("unanswered: read: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}
	return len(records) - 1, nil
}
