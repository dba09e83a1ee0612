// Package research runs the multi-agent workflow that answers HCI research
// questions: a planner breaks the question down, a researcher gathers
// evidence through the registered search tools, a writer drafts a cited
// answer and a critic reviews it, looping until approval or the revision
// limit. Safety checks guard both the incoming query and the outgoing
// answer.
package research

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sweetpotato0/scholarly/errors"
	"github.com/sweetpotato0/scholarly/graph"
	"github.com/sweetpotato0/scholarly/guardrail"
	"github.com/sweetpotato0/scholarly/llm"
	"github.com/sweetpotato0/scholarly/middleware"
	"github.com/sweetpotato0/scholarly/pkg/logging"
	"github.com/sweetpotato0/scholarly/prompt"
	"github.com/sweetpotato0/scholarly/safety"
	"github.com/sweetpotato0/scholarly/tool"
)

// Clients selects the model behind each role. Default backs any role whose
// own field is nil. Researcher is optional: without a client the researcher
// skips query refinement and searches the plan's queries directly.
type Clients struct {
	Default    llm.Client
	Planner    llm.Client
	Researcher llm.Client
	Writer     llm.Client
	Critic     llm.Client
}

// Pipeline executes research queries end to end.
type Pipeline struct {
	cfg        *Config
	safety     *safety.Coordinator
	planner    *planner
	researcher *researcher
	writer     *writer
	critic     *critic
	graph      *graph.Graph
	logger     *slog.Logger
	tracer     trace.Tracer
}

// NewPipeline wires the four roles, the search registry and the safety
// coordinator into an executable workflow. A nil registry means the
// researcher gathers nothing; a nil coordinator gets the default policy.
func NewPipeline(clients Clients, searchers *tool.Registry, coordinator *safety.Coordinator, opts ...Option) (*Pipeline, error) {
	cfg := applyOptions(defaultConfig(), opts...)
	logger := logging.WithComponent(cfg.Name)

	plannerLLM := pickClient(clients.Planner, clients.Default)
	writerLLM := pickClient(clients.Writer, clients.Default)
	criticLLM := pickClient(clients.Critic, clients.Default)
	researcherLLM := pickClient(clients.Researcher, clients.Default)
	if plannerLLM == nil || writerLLM == nil || criticLLM == nil {
		return nil, fmt.Errorf("planner, writer and critic each need a client; set Clients.Default or the role fields")
	}
	plannerLLM = wrapClient(plannerLLM, RolePlanner)
	writerLLM = wrapClient(writerLLM, RoleWriter)
	criticLLM = wrapClient(criticLLM, RoleCritic)
	if researcherLLM != nil {
		researcherLLM = wrapClient(researcherLLM, RoleResearcher)
	}

	if searchers == nil {
		searchers = tool.NewRegistry()
	}
	if coordinator == nil {
		coordinator = safety.NewCoordinator(nil, safety.DefaultPolicy(), nil)
	}
	prompts, err := buildPromptLibrary(cfg)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:        cfg,
		safety:     coordinator,
		planner:    newPlanner(plannerLLM, prompts, cfg, logger),
		researcher: newResearcher(researcherLLM, searchers, prompts, cfg, logger),
		writer:     newWriter(writerLLM, prompts, cfg, logger),
		critic:     newCritic(criticLLM, prompts, cfg, logger),
		logger:     logger,
		tracer:     otel.Tracer("scholarly/research"),
	}

	g, err := graph.NewBuilder().
		AddNode("plan", p.planNode).
		AddNode("research", p.researchNode).
		AddNode("write", p.writeNode).
		AddNode("critique", p.critiqueNode).
		AddConditionNode("review_gate", p.reviewGate, map[string]string{
			"revise":   "revise",
			"finalize": "finalize",
		}).
		AddNode("revise", p.reviseNode).
		AddNode("finalize", p.finalizeNode).
		AddEdge("plan", "research").
		AddEdge("research", "write").
		AddEdge("write", "critique").
		AddEdge("critique", "review_gate").
		AddEdge("revise", "write").
		SetStart("plan").
		SetEnd("finalize").
		SetMaxVisits(cfg.MaxNodeVisits).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build workflow graph: %w", err)
	}
	p.graph = g

	logger.Info("pipeline initialised",
		"max_revisions", cfg.MaxRevisions,
		"searchers", searchers.Len(),
		"refine_queries", cfg.RefineQueries && researcherLLM != nil,
		"citation_style", string(cfg.CitationStyle))
	return p, nil
}

// Run answers one research query. Results are returned for every outcome
// that produced state worth reading: a blocked query yields a refusal
// result, a backend failure yields the partial state alongside the error,
// and a cancelled context yields whatever was gathered before the current
// phase boundary.
func (p *Pipeline) Run(ctx context.Context, text string) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("query is empty: %w", errors.ErrInvalidInput)
	}
	query := NewQuery(text)
	ctx, span := p.tracer.Start(ctx, "research.run", trace.WithAttributes(
		attribute.String("query.id", query.ID),
	))
	defer span.End()
	p.logger.Info("query received", "query_id", query.ID, "chars", len(text))

	inDecision := p.safety.Check(ctx, query.ID, text, guardrail.DirectionInput)
	if inDecision.Blocked() {
		p.logger.Warn("query blocked",
			"query_id", query.ID,
			"categories", inDecision.Categories())
		span.SetAttributes(attribute.String("research.phase", string(PhaseBlocked)))
		return blockedResult(query, inDecision, p.safety.RefusalMessage(guardrail.DirectionInput)), nil
	}

	st := newWorkflowState(query, p.cfg.MaxRevisions)
	st.decisions = append(st.decisions, inDecision)

	_, err := p.graph.Execute(ctx, graph.State{stateKey: st})
	if err != nil {
		var backend *errors.BackendFailureError
		switch {
		case errors.As(err, &backend):
			st.fail(err)
			p.logger.Error("workflow failed",
				"query_id", query.ID,
				"role", backend.Role,
				"error", err)
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			p.logger.Warn("workflow abandoned by caller",
				"query_id", query.ID,
				"phase", string(st.phase),
				"error", err)
		default:
			st.fail(err)
			p.logger.Error("workflow failed", "query_id", query.ID, "error", err)
		}
		span.SetAttributes(attribute.String("research.phase", string(st.phase)))
		return st.result(p.cfg.CitationStyle), err
	}

	result := st.result(p.cfg.CitationStyle)
	span.SetAttributes(attribute.String("research.phase", string(result.Phase)))
	p.logger.Info("workflow finished",
		"query_id", query.ID,
		"phase", string(result.Phase),
		"revisions", result.Revisions,
		"evidence", len(result.Evidence),
		"elapsed", result.Timings.Total)
	return result, nil
}

// Safety exposes the coordinator so callers can read audit statistics.
func (p *Pipeline) Safety() *safety.Coordinator { return p.safety }

func (p *Pipeline) planNode(ctx context.Context, state graph.State) (graph.State, error) {
	st, err := getState(state)
	if err != nil {
		return state, err
	}
	ctx, span := p.tracer.Start(ctx, "phase.planning")
	defer span.End()

	plan, err := p.planner.Plan(ctx, st.query.Text)
	if err != nil {
		return state, &errors.BackendFailureError{Role: string(RolePlanner), Err: err}
	}
	st.plan = plan
	if err := st.appendMessage(RolePlanner, describePlan(plan), map[string]any{
		"strategy": plan.Strategy,
		"steps":    len(plan.Steps),
	}); err != nil {
		return state, err
	}
	p.logger.Info("plan ready", "query_id", st.query.ID, "steps", len(plan.Steps))
	return state, nil
}

func (p *Pipeline) researchNode(ctx context.Context, state graph.State) (graph.State, error) {
	st, err := getState(state)
	if err != nil {
		return state, err
	}
	if err := st.setPhase(PhaseResearching); err != nil {
		return state, err
	}
	ctx, span := p.tracer.Start(ctx, "phase.researching")
	defer span.End()

	report := p.researcher.Gather(ctx, st.query.Text, st.plan)
	added := 0
	for _, ev := range report.Findings {
		if st.addEvidence(ev) {
			added++
		}
	}
	citable := len(CitableEvidence(st.evidence))
	content := fmt.Sprintf("Ran %d searches over %d queries; pooled %d new sources, %d citable overall.",
		len(report.Calls), len(report.Queries), added, citable)
	if err := st.appendMessage(RoleResearcher, content, map[string]any{
		"queries":    report.Queries,
		"tool_calls": report.Calls,
	}); err != nil {
		return state, err
	}
	p.logger.Info("evidence gathered",
		"query_id", st.query.ID,
		"calls", len(report.Calls),
		"pooled", added,
		"citable", citable)
	return state, nil
}

func (p *Pipeline) writeNode(ctx context.Context, state graph.State) (graph.State, error) {
	st, err := getState(state)
	if err != nil {
		return state, err
	}
	if err := st.setPhase(PhaseWriting); err != nil {
		return state, err
	}
	ctx, span := p.tracer.Start(ctx, "phase.writing")
	defer span.End()

	citable := CitableEvidence(st.evidence)
	draft, err := p.writer.Compose(ctx, st.query.Text, st.plan, citable, st.review, st.draft)
	if err != nil {
		return state, &errors.BackendFailureError{Role: string(RoleWriter), Err: err}
	}
	st.draft = draft
	meta := map[string]any{
		"revision": st.revisions,
		"evidence": len(citable),
	}
	if cited := citedIndexes(draft); len(cited) > 0 {
		meta["cited"] = cited
	}
	if err := st.appendMessage(RoleWriter, draft, meta); err != nil {
		return state, err
	}
	p.logger.Info("draft composed",
		"query_id", st.query.ID,
		"revision", st.revisions,
		"chars", len(draft))
	return state, nil
}

func (p *Pipeline) critiqueNode(ctx context.Context, state graph.State) (graph.State, error) {
	st, err := getState(state)
	if err != nil {
		return state, err
	}
	if err := st.setPhase(PhaseCritiquing); err != nil {
		return state, err
	}
	ctx, span := p.tracer.Start(ctx, "phase.critiquing")
	defer span.End()

	review, err := p.critic.Review(ctx, st.query.Text, st.draft, CitableEvidence(st.evidence))
	if err != nil {
		return state, &errors.BackendFailureError{Role: string(RoleCritic), Err: err}
	}
	st.review = review
	if err := st.appendMessage(RoleCritic, describeVerdict(review), map[string]any{
		"verdict": string(review.Verdict),
		"issues":  len(review.Issues),
	}); err != nil {
		return state, err
	}
	p.logger.Info("draft reviewed",
		"query_id", st.query.ID,
		"verdict", string(review.Verdict),
		"issues", len(review.Issues))
	return state, nil
}

func (p *Pipeline) reviewGate(_ context.Context, state graph.State) (string, error) {
	st, err := getState(state)
	if err != nil {
		return "", err
	}
	if st.review != nil && st.review.Verdict == VerdictRevise {
		if st.revisions < st.maxRevisions {
			return "revise", nil
		}
		st.addNotice("revision limit of %d reached; accepting the current draft", st.maxRevisions)
		p.logger.Warn("revision limit reached",
			"query_id", st.query.ID,
			"revisions", st.revisions)
	}
	return "finalize", nil
}

func (p *Pipeline) reviseNode(_ context.Context, state graph.State) (graph.State, error) {
	st, err := getState(state)
	if err != nil {
		return state, err
	}
	if err := st.setPhase(PhaseRevising); err != nil {
		return state, err
	}
	st.revisions++
	p.logger.Info("revision started",
		"query_id", st.query.ID,
		"revision", st.revisions,
		"issues", len(st.review.Issues))
	return state, nil
}

// finalizeNode runs the output safety check on the accepted draft and picks
// the terminal phase. A sanitized answer replaces the draft in the result
// only; the transcript keeps what the writer produced.
func (p *Pipeline) finalizeNode(ctx context.Context, state graph.State) (graph.State, error) {
	st, err := getState(state)
	if err != nil {
		return state, err
	}
	decision := p.safety.Check(ctx, st.query.ID, st.draft, guardrail.DirectionOutput)
	st.decisions = append(st.decisions, decision)

	switch decision.Action {
	case guardrail.ActionBlock:
		if err := st.setPhase(PhaseBlocked); err != nil {
			return state, err
		}
		st.answer = p.safety.RefusalMessage(guardrail.DirectionOutput)
		p.logger.Warn("answer blocked by output check",
			"query_id", st.query.ID,
			"categories", decision.Categories())
	case guardrail.ActionSanitize:
		st.answer = decision.Sanitized
		if err := st.setPhase(PhaseDone); err != nil {
			return state, err
		}
		p.logger.Info("answer sanitized",
			"query_id", st.query.ID,
			"categories", decision.Categories())
	default:
		st.answer = st.draft
		if err := st.setPhase(PhaseDone); err != nil {
			return state, err
		}
	}
	return state, nil
}

func describeVerdict(review *Review) string {
	if review.Verdict == VerdictApprove {
		if review.Notes != "" {
			return "Approved: " + review.Notes
		}
		return "Approved the draft."
	}
	var b strings.Builder
	b.WriteString("Requested changes:\n")
	for i, issue := range review.Issues {
		fmt.Fprintf(&b, "%d. %s\n", i+1, issue)
	}
	if review.Notes != "" {
		b.WriteString(review.Notes)
	}
	return strings.TrimRight(b.String(), "\n")
}

func blockedResult(query Query, decision safety.Decision, refusal string) *Result {
	return &Result{
		Query:     query,
		Answer:    refusal,
		Decisions: []safety.Decision{decision},
		Phase:     PhaseBlocked,
		Phases:    []Phase{PhaseBlocked},
		Timings: Timings{
			PerPhase: map[Phase]time.Duration{},
			Total:    time.Since(query.ReceivedAt),
		},
	}
}

func pickClient(primary, fallback llm.Client) llm.Client {
	if primary != nil {
		return primary
	}
	return fallback
}

func wrapClient(client llm.Client, role Role) llm.Client {
	return middleware.Wrap(client, string(role),
		middleware.NewCallLogger(),
		middleware.NewRetry(0, 0),
	)
}

func buildPromptLibrary(cfg *Config) (*prompt.Library, error) {
	lib := prompt.NewLibrary()
	seeds := []struct {
		name string
		text string
		vars map[string]any
	}{
		{"planner", cfg.PlannerPrompt, map[string]any{"MaxSteps": cfg.MaxPlanSteps}},
		{"researcher", cfg.ResearcherPrompt, map[string]any{"MaxQueries": cfg.MaxSearchQueries}},
		{"writer", cfg.WriterPrompt, nil},
		{"critic", cfg.CriticPrompt, nil},
	}
	for _, seed := range seeds {
		if err := lib.Override(seed.name, seed.text); err != nil {
			return nil, fmt.Errorf("prompt %s: %w", seed.name, err)
		}
		if _, err := lib.Render(seed.name, seed.vars); err != nil {
			return nil, fmt.Errorf("prompt %s: %w", seed.name, err)
		}
	}
	return lib, nil
}
