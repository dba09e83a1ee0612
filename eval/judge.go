// Package eval grades pipeline answers with a model acting as judge and runs
// whole query sets concurrently into an aggregate report.
package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/sweetpotato0/scholarly/llm"
	"github.com/sweetpotato0/scholarly/message"
	"github.com/sweetpotato0/scholarly/pkg/logging"
	"github.com/sweetpotato0/scholarly/prompt"
)

// Criterion is one judged dimension of an answer.
type Criterion string

const (
	CriterionRelevance       Criterion = "relevance"
	CriterionCompleteness    Criterion = "completeness"
	CriterionCitationQuality Criterion = "citation_quality"
	CriterionSafety          Criterion = "safety"
)

// Criteria lists the judged dimensions in report order.
var Criteria = []Criterion{
	CriterionRelevance,
	CriterionCompleteness,
	CriterionCitationQuality,
	CriterionSafety,
}

// Judgement is one graded answer. Scores are clamped to [0, 1]; Overall is
// their mean.
type Judgement struct {
	Scores   map[Criterion]float64 `json:"scores"`
	Overall  float64               `json:"overall"`
	Comments string                `json:"comments,omitempty"`
}

// Judge scores answers with a model.
type Judge struct {
	llm    llm.Client
	cfg    *Config
	logger *slog.Logger
}

// NewJudge creates a judge backed by the given client.
func NewJudge(client llm.Client, opts ...Option) (*Judge, error) {
	if client == nil {
		return nil, fmt.Errorf("judge needs a client")
	}
	cfg := applyOptions(defaultConfig(), opts...)
	return &Judge{
		llm:    client,
		cfg:    cfg,
		logger: logging.WithComponent("eval"),
	}, nil
}

// Assess grades one answer against the question it was given. Judge models
// that do not return usable scores yield an error; the caller decides whether
// that fails the case.
func (j *Judge) Assess(ctx context.Context, query, answer string, citations []string) (*Judgement, error) {
	b := prompt.NewBuilder().
		AddSection("Question", query).
		AddSection("Answer", answer)
	if len(citations) > 0 {
		b.AddSection("Sources", strings.Join(citations, "\n"))
	}
	resp, err := j.llm.Generate(ctx, []*message.Message{
		message.System(j.cfg.JudgePrompt),
		message.User(b.Build()),
	})
	if err != nil {
		return nil, err
	}
	judgement, err := parseJudgement(resp.Text())
	if err != nil {
		return nil, err
	}
	j.logger.Debug("answer graded", "overall", judgement.Overall)
	return judgement, nil
}

type judgeReply struct {
	Relevance       *float64 `json:"relevance"`
	Completeness    *float64 `json:"completeness"`
	CitationQuality *float64 `json:"citation_quality"`
	Safety          *float64 `json:"safety"`
	Comments        string   `json:"comments"`
}

func parseJudgement(raw string) (*Judgement, error) {
	clean := strings.TrimSpace(raw)
	if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```")
		clean = strings.TrimPrefix(clean, "json")
		if idx := strings.LastIndex(clean, "```"); idx >= 0 {
			clean = clean[:idx]
		}
		clean = strings.TrimSpace(clean)
	}
	if start := strings.Index(clean, "{"); start > 0 {
		if end := strings.LastIndex(clean, "}"); end > start {
			clean = clean[start : end+1]
		}
	}

	var reply judgeReply
	if err := json.Unmarshal([]byte(clean), &reply); err != nil {
		return nil, fmt.Errorf("judge output is not JSON: %w", err)
	}
	if reply.Relevance == nil && reply.Completeness == nil &&
		reply.CitationQuality == nil && reply.Safety == nil {
		return nil, fmt.Errorf("judge output carries no scores")
	}

	scores := map[Criterion]float64{
		CriterionRelevance:       clamp01(reply.Relevance),
		CriterionCompleteness:    clamp01(reply.Completeness),
		CriterionCitationQuality: clamp01(reply.CitationQuality),
		CriterionSafety:          clamp01(reply.Safety),
	}
	sum := 0.0
	for _, criterion := range Criteria {
		sum += scores[criterion]
	}
	return &Judgement{
		Scores:   scores,
		Overall:  sum / float64(len(Criteria)),
		Comments: strings.TrimSpace(reply.Comments),
	}, nil
}

func clamp01(v *float64) float64 {
	if v == nil || math.IsNaN(*v) {
		return 0
	}
	switch {
	case *v < 0:
		return 0
	case *v > 1:
		return 1
	default:
		return *v
	}
}
