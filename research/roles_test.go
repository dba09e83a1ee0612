package research

import (
	"context"
	"strings"
	"testing"

	"github.com/sweetpotato0/scholarly/llm"
	"github.com/sweetpotato0/scholarly/message"
	"github.com/sweetpotato0/scholarly/pkg/logging"
	"github.com/sweetpotato0/scholarly/prompt"
	"github.com/sweetpotato0/scholarly/tool"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	return applyOptions(defaultConfig())
}

func testLibrary(t *testing.T, cfg *Config) *prompt.Library {
	t.Helper()
	lib, err := buildPromptLibrary(cfg)
	if err != nil {
		t.Fatalf("buildPromptLibrary: %v", err)
	}
	return lib
}

func TestPlannerClampsAndBackfills(t *testing.T) {
	reply := `{"strategy": "broad then deep", "steps": [
		{"goal": "one", "queries": ["q one"]},
		{"goal": "two"},
		{"goal": "three"},
		{"goal": "four"},
		{"goal": "five"}
	]}`
	cfg := testConfig(t)
	pl := newPlanner(&scriptClient{replies: []string{reply}}, testLibrary(t, cfg), cfg, logging.WithComponent("test"))

	plan, err := pl.Plan(context.Background(), "query")
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan.Steps) != cfg.MaxPlanSteps {
		t.Fatalf("steps = %d, want clamped to %d", len(plan.Steps), cfg.MaxPlanSteps)
	}
	for i, step := range plan.Steps {
		if step.ID == "" {
			t.Errorf("steps[%d].ID not backfilled", i)
		}
	}
	if plan.Steps[1].ID != "step-2" {
		t.Errorf("steps[1].ID = %q, want step-2", plan.Steps[1].ID)
	}
}

func TestPlannerFallsBackOnProse(t *testing.T) {
	cfg := testConfig(t)
	pl := newPlanner(&scriptClient{replies: []string{"I think we should look into several things first."}},
		testLibrary(t, cfg), cfg, logging.WithComponent("test"))

	plan, err := pl.Plan(context.Background(), "mobile ux study design")
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan.Steps) != 1 {
		t.Fatalf("fallback plan has %d steps, want 1", len(plan.Steps))
	}
	if plan.Steps[0].Goal != "mobile ux study design" {
		t.Errorf("fallback goal = %q, want the query", plan.Steps[0].Goal)
	}
	if len(plan.Steps[0].Queries) != 1 || plan.Steps[0].Queries[0] != "mobile ux study design" {
		t.Errorf("fallback queries = %v", plan.Steps[0].Queries)
	}
}

func TestWriterSkipsModelBelowEvidenceFloor(t *testing.T) {
	cfg := testConfig(t)
	client := &scriptClient{replies: []string{"should not be called"}}
	w := newWriter(client, testLibrary(t, cfg), cfg, logging.WithComponent("test"))

	draft, err := w.Compose(context.Background(), "q", fallbackPlan("q"), nil, nil, "")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if draft != cfg.NoEvidenceMessage {
		t.Errorf("draft = %q, want the no-evidence fallback", draft)
	}
	if client.callCount() != 0 {
		t.Errorf("model called %d times with no evidence", client.callCount())
	}
}

func TestWriterEvidenceBlockNumbering(t *testing.T) {
	cfg := testConfig(t)
	w := newWriter(&scriptClient{replies: []string{"draft"}}, testLibrary(t, cfg), cfg, logging.WithComponent("test"))
	citable := []Evidence{
		{Kind: tool.KindPaper, Identifier: "p1", Title: "Usability Engineering", Venue: "CHI", Year: 1993, Source: "semanticscholar", Snippet: "Discount usability methods."},
		{Kind: tool.KindWeb, Identifier: "u1", Title: "Ten Usability Heuristics", Source: "duckduckgo"},
	}
	block := w.evidenceBlock(citable)
	if !strings.Contains(block, "[1] Usability Engineering (CHI, 1993, via semanticscholar)") {
		t.Errorf("block missing first entry header:\n%s", block)
	}
	if !strings.Contains(block, "[2] Ten Usability Heuristics (via duckduckgo)") {
		t.Errorf("block missing second entry header:\n%s", block)
	}
	if !strings.Contains(block, "Discount usability methods.") {
		t.Errorf("block missing snippet:\n%s", block)
	}
}

func TestWriterTrimsLongSnippets(t *testing.T) {
	cfg := testConfig(t)
	cfg.SnippetTokenBudget = 10
	w := newWriter(&scriptClient{replies: []string{"draft"}}, testLibrary(t, cfg), cfg, logging.WithComponent("test"))

	long := strings.Repeat("usability evaluation ", 50)
	trimmed := w.trimSnippet(long)
	if !strings.HasSuffix(trimmed, "...") {
		t.Fatalf("long snippet not marked as trimmed: %q", trimmed)
	}
	if len([]rune(trimmed)) > 10*4+3 {
		t.Errorf("trimmed snippet is %d runes, want at most budget*4+ellipsis", len([]rune(trimmed)))
	}

	if got := w.trimSnippet("short snippet"); got != "short snippet" {
		t.Errorf("short snippet changed: %q", got)
	}
}

func TestCriticApprovesOnUnparseableOutput(t *testing.T) {
	cfg := testConfig(t)
	prose := llm.Func(func(context.Context, []*message.Message) (*message.Message, error) {
		return message.Assistant("looks fine to me!"), nil
	})
	c := newCritic(prose, testLibrary(t, cfg), cfg, logging.WithComponent("test"))

	review, err := c.Review(context.Background(), "q", "draft", nil)
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if review.Verdict != VerdictApprove {
		t.Errorf("verdict = %s, want %s", review.Verdict, VerdictApprove)
	}
	if !strings.Contains(review.Notes, "could not be parsed") {
		t.Errorf("notes = %q", review.Notes)
	}
}

func TestNormalizeVerdict(t *testing.T) {
	cases := []struct {
		in   Verdict
		want Verdict
	}{
		{"approve", VerdictApprove},
		{"APPROVE", VerdictApprove},
		{" Revise ", VerdictRevise},
		{"reject", VerdictRevise},
		{"needs_revision", VerdictRevise},
		{"", VerdictApprove},
		{"unknown", VerdictApprove},
	}
	for _, tc := range cases {
		if got := normalizeVerdict(tc.in); got != tc.want {
			t.Errorf("normalizeVerdict(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestCriticBackfillsReviseIssues(t *testing.T) {
	cfg := testConfig(t)
	c := newCritic(&scriptClient{replies: []string{`{"verdict": "revise", "issues": []}`}},
		testLibrary(t, cfg), cfg, logging.WithComponent("test"))

	review, err := c.Review(context.Background(), "q", "draft", nil)
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if review.Verdict != VerdictRevise {
		t.Fatalf("verdict = %s, want %s", review.Verdict, VerdictRevise)
	}
	if len(review.Issues) == 0 {
		t.Error("revise verdict left without issues")
	}
}

func TestNormalizeQueries(t *testing.T) {
	in := []string{" mobile ux ", "Mobile UX", "", "touch targets", "gesture design", "haptics", "voice"}
	got := normalizeQueries(in, 4)
	want := []string{"mobile ux", "touch targets", "gesture design", "haptics"}
	if len(got) != len(want) {
		t.Fatalf("normalizeQueries = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("normalizeQueries[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCitedIndexes(t *testing.T) {
	draft := "First claim [1]. Second claim [3], repeated [1], and [2]."
	got := citedIndexes(draft)
	want := []int{1, 3, 2}
	if len(got) != len(want) {
		t.Fatalf("citedIndexes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("citedIndexes[%d] = %d, want %d", i, got[i], want[i])
		}
	}
	if citedIndexes("no citations here") != nil {
		t.Error("citedIndexes on plain text should be nil")
	}
}
