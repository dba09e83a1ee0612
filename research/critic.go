package research

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/scholarly/llm"
	"github.com/sweetpotato0/scholarly/message"
	"github.com/sweetpotato0/scholarly/prompt"
)

type critic struct {
	llm     llm.Client
	prompts *prompt.Library
	cfg     *Config
	logger  *slog.Logger
}

func newCritic(client llm.Client, prompts *prompt.Library, cfg *Config, logger *slog.Logger) *critic {
	return &critic{llm: client, prompts: prompts, cfg: cfg, logger: logger}
}

// Review judges a draft against the evidence it cites. Output the reviewer
// model mangles beyond parsing counts as approval; a broken reviewer must
// not hold up an otherwise finished answer.
func (c *critic) Review(ctx context.Context, query, draft string, citable []Evidence) (*Review, error) {
	system, err := c.prompts.Render("critic", nil)
	if err != nil {
		return nil, fmt.Errorf("render critic prompt: %w", err)
	}
	user := prompt.NewBuilder().
		AddSection("Question", query).
		AddSection("Evidence", evidenceTitles(citable)).
		AddSection("Draft", draft).
		Build()
	resp, err := c.llm.Generate(ctx, []*message.Message{
		message.System(system),
		message.User(user),
	})
	if err != nil {
		return nil, err
	}

	review, err := decodeJSON[Review](resp.Text())
	if err != nil {
		c.logger.Warn("critic output unparseable, approving draft", "error", err)
		return &Review{
			Verdict: VerdictApprove,
			Notes:   fmt.Sprintf("reviewer output could not be parsed: %v", err),
		}, nil
	}
	review.Verdict = normalizeVerdict(review.Verdict)
	if review.Verdict == VerdictRevise && len(review.Issues) == 0 {
		review.Issues = append(review.Issues, "reviewer requested changes without naming them; tighten citations and factual support")
	}
	return review, nil
}

func normalizeVerdict(v Verdict) Verdict {
	switch Verdict(strings.ToLower(strings.TrimSpace(string(v)))) {
	case VerdictRevise, "reject", "needs_revision", "needs revision":
		return VerdictRevise
	default:
		return VerdictApprove
	}
}

func evidenceTitles(citable []Evidence) string {
	if len(citable) == 0 {
		return "No evidence was gathered."
	}
	var b strings.Builder
	for i, e := range citable {
		fmt.Fprintf(&b, "[%d] %s", i+1, e.Title)
		if e.Year > 0 {
			fmt.Fprintf(&b, " (%d)", e.Year)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
