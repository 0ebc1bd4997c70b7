package match

import (
	"testing"

	"github.com/starford/ansuz/internal/knowledge"
	"github.com/starford/ansuz/internal/testutil"
)

func entry(category, question, answer string, priority int) knowledge.Entry {
	return knowledge.Entry{
		Category: category,
		Question: question,
		Answer:   answer,
		Priority: priority,
	}
}

func TestMatch_TokenOrderIndependent(t *testing.T) {
	snap := testutil.Snapshot(entry("HR", "leave policy", "see handbook", 0))

	a := Match("leave policy", snap, 60, 5)
	b := Match("policy leave", snap, 60, 5)

	if len(a) != 1 || len(b) != 1 {
		t.Fatalf("len(a) = %d, len(b) = %d, want 1 and 1", len(a), len(b))
	}
	if a[0].Score != 100 || b[0].Score != 100 {
		t.Errorf("scores = %v and %v, want 100 for both orders", a[0].Score, b[0].Score)
	}
}

func TestMatch_TypoToleranceAcrossLengths(t *testing.T) {
	snap := testutil.Snapshot(
		entry("HR", "vacation days", "20 per year", 1),
		entry("HR", "how many vacation days", "20 per year", 5),
	)

	results := Match("vacaton day", snap, 60, 5)
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	for _, r := range results {
		if r.Score < 60 {
			t.Errorf("score %v below threshold for %q", r.Score, r.Entry.Question)
		}
	}
	// The shorter question is the closer match; score ordering wins over
	// priority.
	if results[0].Entry.Question != "vacation days" {
		t.Errorf("first result = %q, want %q", results[0].Entry.Question, "vacation days")
	}
}

func TestMatch_EmptyQueryAndSnapshot(t *testing.T) {
	snap := testutil.Snapshot(entry("HR", "leave policy", "see handbook", 0))

	if got := Match("", snap, 60, 5); len(got) != 0 {
		t.Errorf("empty query: got %d results, want 0", len(got))
	}
	if got := Match("   ?!  ", snap, 60, 5); len(got) != 0 {
		t.Errorf("punctuation-only query: got %d results, want 0", len(got))
	}
	if got := Match("leave policy", testutil.Snapshot(), 60, 5); len(got) != 0 {
		t.Errorf("empty snapshot: got %d results, want 0", len(got))
	}
	if got := Match("leave policy", nil, 60, 5); len(got) != 0 {
		t.Errorf("nil snapshot: got %d results, want 0", len(got))
	}
}

func TestMatch_ThresholdAndLimit(t *testing.T) {
	snap := testutil.Snapshot(
		entry("", "vpn setup", "use the portal", 0),
		entry("", "vpn troubleshooting", "restart the client", 0),
		entry("", "vpn access request", "file a ticket", 0),
		entry("", "parking permit", "front desk", 0),
	)

	results := Match("vpn", snap, 0, 2)
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2 (maxResults)", len(results))
	}

	results = Match("vpn setup", snap, 60, 10)
	for _, r := range results {
		if r.Score < 60 {
			t.Errorf("score %v below threshold for %q", r.Score, r.Entry.Question)
		}
	}
}

func TestMatch_TieBreakByPriorityThenOrder(t *testing.T) {
	snap := testutil.Snapshot(
		entry("", "expense report", "answer low", 0),
		entry("", "expense report", "answer high", 7),
		entry("", "expense report", "answer mid first", 3),
		entry("", "expense report", "answer mid second", 3),
	)

	results := Match("expense report", snap, 60, 10)
	if len(results) != 4 {
		t.Fatalf("len(results) = %d, want 4", len(results))
	}

	wantAnswers := []string{"answer high", "answer mid first", "answer mid second", "answer low"}
	for i, want := range wantAnswers {
		if results[i].Entry.Answer != want {
			t.Errorf("results[%d].Answer = %q, want %q", i, results[i].Entry.Answer, want)
		}
	}
}

func TestMatch_OriginalStringsUntouched(t *testing.T) {
	snap := testutil.Snapshot(entry("HR", "What Is The LEAVE Policy?", "see handbook", 0))

	results := Match("leave policy", snap, 60, 5)
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].Entry.Question != "What Is The LEAVE Policy?" {
		t.Errorf("question = %q, normalization must not leak into results", results[0].Entry.Question)
	}
}

func TestBest(t *testing.T) {
	snap := testutil.Snapshot(
		entry("", "office hours", "9 to 5", 0),
		entry("", "office address", "12 Main St", 0),
	)

	res, ok := Best("office hours", snap, 60)
	if !ok {
		t.Fatal("expected a best match")
	}
	if res.Entry.Question != "office hours" {
		t.Errorf("best = %q, want %q", res.Entry.Question, "office hours")
	}

	if _, ok := Best("completely unrelated query", snap, 90); ok {
		t.Error("expected no match above threshold 90")
	}
}

func TestByCategory(t *testing.T) {
	snap := testutil.Snapshot(
		entry("IT", "password reset", "use the portal", 0),
		entry("HR", "password reset", "ask your manager", 0),
	)

	results := ByCategory("password reset", snap, "hr", 60, 5)
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].Entry.Answer != "ask your manager" {
		t.Errorf("answer = %q, want the HR entry", results[0].Entry.Answer)
	}

	if got := ByCategory("password reset", snap, "finance", 60, 5); len(got) != 0 {
		t.Errorf("unknown category: got %d results, want 0", len(got))
	}
}

func TestScore(t *testing.T) {
	if got := Score("leave policy", "Policy... LEAVE!"); got != 100 {
		t.Errorf("Score = %v, want 100 after normalization and token sort", got)
	}
	if got := Score("alpha", "alpha"); got != 100 {
		t.Errorf("identical strings: Score = %v, want 100", got)
	}
	if got := Score("", "anything"); got != 0 {
		t.Errorf("empty vs non-empty: Score = %v, want 0", got)
	}
	if got := Score("abc", "xyz"); got < 0 || got > 100 {
		t.Errorf("Score = %v, want within [0,100]", got)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  How's   the LEAVE policy?? ", "how s the leave policy"},
		{"", ""},
		{"!!!", ""},
		{"Wi-Fi  access", "wi fi access"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
