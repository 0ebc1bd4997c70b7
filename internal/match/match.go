// Package match ranks knowledge entries by textual similarity to a query.
//
// The similarity measure is token-order independent: both strings are
// normalized, split into whitespace tokens, sorted and rejoined before an
// edit-distance comparison. Employee questions are frequently reordered or
// abbreviated ("leave policy" vs "policy on leave"), which a raw edit
// distance would rank far apart.
package match

import (
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"

	"github.com/starford/ansuz/internal/knowledge"
)

// Default tuning values, overridable via configuration.
const (
	DefaultThreshold  = 60.0
	DefaultMaxResults = 5
)

// Result pairs an entry with its similarity score in [0,100].
type Result struct {
	Entry knowledge.Entry `json:"entry"`
	Score float64         `json:"score"`
}

// Match scores every entry of the snapshot against query and returns the
// matches at or above threshold, sorted by score descending, then by
// priority descending, then by original table order. At most maxResults
// entries are returned. An empty query or snapshot yields an empty slice.
func Match(query string, snap *knowledge.Snapshot, threshold float64, maxResults int) []Result {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	normalized := tokenSort(Normalize(query))
	if normalized == "" || snap.Empty() {
		return nil
	}

	results := make([]Result, 0, len(snap.Entries))
	for _, e := range snap.Entries {
		score := ratio(normalized, tokenSort(Normalize(e.Question)))
		if score < threshold {
			continue
		}
		results = append(results, Result{Entry: e, Score: score})
	}

	// SliceStable keeps original table order for entries with equal score
	// and priority.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Entry.Priority > results[j].Entry.Priority
	})

	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}

// Best returns the single highest-ranked match, if any.
func Best(query string, snap *knowledge.Snapshot, threshold float64) (Result, bool) {
	results := Match(query, snap, threshold, 1)
	if len(results) == 0 {
		return Result{}, false
	}
	return results[0], true
}

// ByCategory matches only against entries of the given category
// (case-insensitive).
func ByCategory(query string, snap *knowledge.Snapshot, category string, threshold float64, maxResults int) []Result {
	if snap.Empty() {
		return nil
	}
	filtered := &knowledge.Snapshot{FetchedAt: snap.FetchedAt}
	for _, e := range snap.Entries {
		if strings.EqualFold(e.Category, category) {
			filtered.Entries = append(filtered.Entries, e)
		}
	}
	return Match(query, filtered, threshold, maxResults)
}

// Score returns the token-sort similarity of two strings in [0,100].
func Score(a, b string) float64 {
	return ratio(tokenSort(Normalize(a)), tokenSort(Normalize(b)))
}

// Normalize lowercases, maps punctuation to spaces, and collapses
// whitespace. The original strings in results are never altered.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// tokenSort sorts the whitespace tokens of an already-normalized string.
func tokenSort(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// ratio is a length-sum normalized Levenshtein similarity:
// 100 * (len(a)+len(b)-dist) / (len(a)+len(b)), in runes. Normalizing by
// the combined length rather than the longer string keeps short queries
// against long questions from collapsing to near zero, which matters for
// abbreviated phrasings.
func ratio(a, b string) float64 {
	if a == "" && b == "" {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	lenSum := len([]rune(a)) + len([]rune(b))
	dist := levenshtein.ComputeDistance(a, b)
	return 100 * float64(lenSum-dist) / float64(lenSum)
}
