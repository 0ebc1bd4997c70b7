package knowledge

import (
	"strconv"
	"strings"
	"time"
)

// Column names expected in the source table. Header matching is
// case-insensitive and tolerates surrounding whitespace.
const (
	colCategory    = "category"
	colQuestion    = "question"
	colAnswer      = "answer"
	colPriority    = "priority"
	colLastUpdated = "last updated"
)

// lastUpdatedLayouts are tried in order when parsing the optional
// "Last Updated" column. Sheets exported by different locales use
// different formats, so parsing is lenient and failures yield a zero time.
var lastUpdatedLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"02.01.2006",
	"01/02/2006",
}

// ParseRows converts raw header-keyed rows into entries, preserving source
// order. Rows missing a question or an answer are skipped and counted.
// Priority defaults to 0 and non-numeric values coerce to 0.
func ParseRows(rows []map[string]string) ([]Entry, int) {
	var entries []Entry
	skipped := 0

	for _, row := range rows {
		question := strings.TrimSpace(field(row, colQuestion))
		answer := strings.TrimSpace(field(row, colAnswer))
		if question == "" || answer == "" {
			skipped++
			continue
		}

		entries = append(entries, Entry{
			Category:    strings.TrimSpace(field(row, colCategory)),
			Question:    question,
			Answer:      answer,
			Priority:    parsePriority(field(row, colPriority)),
			LastUpdated: parseLastUpdated(field(row, colLastUpdated)),
		})
	}

	return entries, skipped
}

// field looks up a column value by case-insensitive header name.
func field(row map[string]string, name string) string {
	if v, ok := row[name]; ok {
		return v
	}
	for k, v := range row {
		if strings.EqualFold(strings.TrimSpace(k), name) {
			return v
		}
	}
	return ""
}

func parsePriority(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	// Sheets sometimes export integers as "5.0".
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return int(f)
	}
	return 0
}

func parseLastUpdated(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range lastUpdatedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
