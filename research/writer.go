package research

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/sweetpotato0/scholarly/llm"
	"github.com/sweetpotato0/scholarly/message"
	"github.com/sweetpotato0/scholarly/prompt"
	"github.com/sweetpotato0/scholarly/tokenizer"
)

type writer struct {
	llm     llm.Client
	prompts *prompt.Library
	cfg     *Config
	logger  *slog.Logger
}

func newWriter(client llm.Client, prompts *prompt.Library, cfg *Config, logger *slog.Logger) *writer {
	return &writer{llm: client, prompts: prompts, cfg: cfg, logger: logger}
}

// Compose drafts an answer from the citable evidence. During a revision pass
// the previous draft and the critic's feedback are included so the model can
// fix rather than restart. With too little evidence the configured fallback
// answer is returned without a model call.
func (w *writer) Compose(ctx context.Context, query string, plan *Plan, citable []Evidence, review *Review, prior string) (string, error) {
	if len(citable) < w.cfg.MinEvidence {
		w.logger.Warn("evidence below floor, using fallback answer",
			"citable", len(citable),
			"min", w.cfg.MinEvidence)
		return w.cfg.NoEvidenceMessage, nil
	}
	system, err := w.prompts.Render("writer", nil)
	if err != nil {
		return "", fmt.Errorf("render writer prompt: %w", err)
	}

	b := prompt.NewBuilder().
		AddSection("Question", query).
		AddSection("Plan", describePlan(plan)).
		AddSection("Evidence", w.evidenceBlock(citable))
	if review != nil {
		b.AddSection("Reviewer feedback", describeReview(review))
		b.AddSection("Previous draft", prior)
		b.Add("Rewrite the draft so every reviewer issue is resolved. Keep what the reviewer did not object to.")
	}

	resp, err := w.llm.Generate(ctx, []*message.Message{
		message.System(system),
		message.User(b.Build()),
	})
	if err != nil {
		return "", err
	}
	draft := strings.TrimSpace(resp.Text())
	if draft == "" {
		return w.cfg.NoEvidenceMessage, nil
	}
	return draft, nil
}

// evidenceBlock numbers the citable entries so bracket citations in the
// draft line up with the final bibliography.
func (w *writer) evidenceBlock(citable []Evidence) string {
	var b strings.Builder
	for i, e := range citable {
		fmt.Fprintf(&b, "[%d] %s", i+1, e.Title)
		var tail []string
		if e.Venue != "" {
			tail = append(tail, e.Venue)
		}
		if e.Year > 0 {
			tail = append(tail, strconv.Itoa(e.Year))
		}
		if e.Source != "" {
			tail = append(tail, "via "+e.Source)
		}
		if len(tail) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(tail, ", "))
		}
		if snippet := w.trimSnippet(e.Snippet); snippet != "" {
			fmt.Fprintf(&b, "\n    %s", snippet)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (w *writer) trimSnippet(snippet string) string {
	snippet = strings.Join(strings.Fields(snippet), " ")
	if snippet == "" {
		return ""
	}
	budget := w.cfg.SnippetTokenBudget
	if w.cfg.counter != nil {
		if w.cfg.counter.Count(snippet) <= budget {
			return snippet
		}
		return w.cfg.counter.Truncate(snippet, budget) + "..."
	}
	if tokenizer.Approx(snippet) <= budget {
		return snippet
	}
	return tokenizer.ApproxTruncate(snippet, budget) + "..."
}

func describeReview(review *Review) string {
	var b strings.Builder
	for i, issue := range review.Issues {
		fmt.Fprintf(&b, "%d. %s\n", i+1, issue)
	}
	if review.Notes != "" {
		b.WriteString(review.Notes)
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return "No specific issues were listed."
	}
	return strings.TrimRight(b.String(), "\n")
}

var citationRef = regexp.MustCompile(`\[(\d+)\]`)

// citedIndexes extracts the distinct citation numbers a draft uses, in first
// appearance order.
func citedIndexes(draft string) []int {
	seen := make(map[int]struct{})
	var out []int
	for _, m := range citationRef.FindAllStringSubmatch(draft, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
