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

type planner struct {
	llm     llm.Client
	prompts *prompt.Library
	cfg     *Config
	logger  *slog.Logger
}

func newPlanner(client llm.Client, prompts *prompt.Library, cfg *Config, logger *slog.Logger) *planner {
	return &planner{llm: client, prompts: prompts, cfg: cfg, logger: logger}
}

// Plan asks the model for an ordered set of research subtasks. Unparseable
// output degrades to a single step that searches the query verbatim, so one
// bad completion never stops the workflow.
func (p *planner) Plan(ctx context.Context, query string) (*Plan, error) {
	system, err := p.prompts.Render("planner", map[string]any{"MaxSteps": p.cfg.MaxPlanSteps})
	if err != nil {
		return nil, fmt.Errorf("render planner prompt: %w", err)
	}
	resp, err := p.llm.Generate(ctx, []*message.Message{
		message.System(system),
		message.User(query),
	})
	if err != nil {
		return nil, err
	}

	plan, err := decodeJSON[Plan](resp.Text())
	if err != nil || len(plan.Steps) == 0 {
		p.logger.Warn("planner output unusable, falling back to direct search",
			"error", err,
			"raw_len", len(resp.Text()))
		return fallbackPlan(query), nil
	}
	if len(plan.Steps) > p.cfg.MaxPlanSteps {
		plan.Steps = plan.Steps[:p.cfg.MaxPlanSteps]
	}
	for i := range plan.Steps {
		step := &plan.Steps[i]
		step.Goal = strings.TrimSpace(step.Goal)
		if step.ID == "" {
			step.ID = fmt.Sprintf("step-%d", i+1)
		}
		if step.Goal == "" {
			step.Goal = query
		}
	}
	return plan, nil
}

func fallbackPlan(query string) *Plan {
	return &Plan{
		Strategy: "search the question directly",
		Steps: []PlanStep{{
			ID:      "step-1",
			Goal:    query,
			Queries: []string{query},
		}},
	}
}

// describePlan renders the plan for the transcript.
func describePlan(plan *Plan) string {
	var b strings.Builder
	if plan.Strategy != "" {
		b.WriteString(plan.Strategy)
		b.WriteString("\n")
	}
	for i, step := range plan.Steps {
		fmt.Fprintf(&b, "%d. %s", i+1, step.Goal)
		if len(step.Queries) > 0 {
			fmt.Fprintf(&b, " (search: %s)", strings.Join(step.Queries, "; "))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
