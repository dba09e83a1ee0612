package research

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sweetpotato0/scholarly/errors"
	"github.com/sweetpotato0/scholarly/llm"
	"github.com/sweetpotato0/scholarly/message"
	"github.com/sweetpotato0/scholarly/prompt"
	"github.com/sweetpotato0/scholarly/tool"
)

type researcher struct {
	llm     llm.Client
	tools   *tool.Registry
	prompts *prompt.Library
	cfg     *Config
	logger  *slog.Logger
	tracer  trace.Tracer
}

func newResearcher(client llm.Client, tools *tool.Registry, prompts *prompt.Library, cfg *Config, logger *slog.Logger) *researcher {
	return &researcher{
		llm:     client,
		tools:   tools,
		prompts: prompts,
		cfg:     cfg,
		logger:  logger,
		tracer:  otel.Tracer("scholarly/research"),
	}
}

// toolCall records one searcher invocation for the transcript metadata.
type toolCall struct {
	Tool    string `json:"tool"`
	Query   string `json:"query"`
	Results int    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// researchReport is everything one research turn produced. Findings keep the
// issue order (query-major, then searcher registration order) so the evidence
// pool, and with it citation numbering, is reproducible run to run.
type researchReport struct {
	Queries  []string
	Calls    []toolCall
	Findings []Evidence
}

// Gather fans the search queries out across every registered searcher
// concurrently and collects the results. Failed calls become degraded pool
// entries instead of errors; a research turn always completes.
func (r *researcher) Gather(ctx context.Context, query string, plan *Plan) *researchReport {
	queries := r.searchQueries(ctx, query, plan)
	searchers := r.tools.List()

	type job struct {
		query    string
		searcher tool.Searcher
	}
	jobs := make([]job, 0, len(queries)*len(searchers))
	for _, q := range queries {
		for _, s := range searchers {
			jobs = append(jobs, job{query: q, searcher: s})
		}
	}

	findings := make([][]Evidence, len(jobs))
	calls := make([]toolCall, len(jobs))
	var wg sync.WaitGroup
	for i, j := range jobs {
		wg.Add(1)
		go func(slot int, j job) {
			defer wg.Done()
			findings[slot], calls[slot] = r.search(ctx, j.searcher, j.query)
		}(i, j)
	}
	wg.Wait()

	report := &researchReport{Queries: queries, Calls: calls}
	for _, batch := range findings {
		report.Findings = append(report.Findings, batch...)
	}
	return report
}

func (r *researcher) search(ctx context.Context, s tool.Searcher, query string) ([]Evidence, toolCall) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ToolTimeout)
	defer cancel()
	ctx, span := r.tracer.Start(ctx, "tool.search", trace.WithAttributes(
		attribute.String("tool.name", s.Name()),
		attribute.String("tool.query", query),
	))
	defer span.End()

	call := toolCall{Tool: s.Name(), Query: query}
	results, err := s.Search(ctx, query, r.cfg.MaxResults)
	if err != nil {
		failure := &errors.ToolFailureError{Tool: s.Name(), Query: query, Err: err}
		call.Error = err.Error()
		span.RecordError(failure)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Warn("search failed",
			"tool", s.Name(),
			"query", query,
			"error", err)
		return []Evidence{degradedEvidence(s.Kind(), s.Name(), query, failure)}, call
	}

	call.Results = len(results)
	span.SetAttributes(attribute.Int("tool.results", len(results)))
	out := make([]Evidence, 0, len(results))
	for _, res := range results {
		if res.Identifier() == "" {
			continue
		}
		out = append(out, Evidence{
			Kind:       s.Kind(),
			Identifier: res.Identifier(),
			Title:      strings.TrimSpace(res.Title),
			URL:        res.URL,
			Snippet:    strings.TrimSpace(res.Snippet),
			Authors:    res.Authors,
			Year:       res.Year,
			Venue:      res.Venue,
			Source:     s.Name(),
		})
	}
	return out, call
}

// searchQueries derives the turn's queries from the plan and, when enabled,
// lets the model rewrite them. Refinement failures fall back to the plan's
// own queries.
func (r *researcher) searchQueries(ctx context.Context, query string, plan *Plan) []string {
	base := normalizeQueries(planQueries(plan, query), r.cfg.MaxSearchQueries)
	if !r.cfg.RefineQueries || r.llm == nil {
		return base
	}
	refined, err := r.refine(ctx, query, plan)
	if err != nil || len(refined) == 0 {
		r.logger.Warn("query refinement unavailable, using plan queries", "error", err)
		return base
	}
	return refined
}

func (r *researcher) refine(ctx context.Context, query string, plan *Plan) ([]string, error) {
	system, err := r.prompts.Render("researcher", map[string]any{"MaxQueries": r.cfg.MaxSearchQueries})
	if err != nil {
		return nil, err
	}
	user := prompt.NewBuilder().
		AddSection("Question", query).
		AddSection("Plan", describePlan(plan)).
		Build()
	resp, err := r.llm.Generate(ctx, []*message.Message{
		message.System(system),
		message.User(user),
	})
	if err != nil {
		return nil, err
	}
	decoded, err := decodeJSON[struct {
		Queries []string `json:"queries"`
	}](resp.Text())
	if err != nil {
		return nil, err
	}
	return normalizeQueries(decoded.Queries, r.cfg.MaxSearchQueries), nil
}

func planQueries(plan *Plan, query string) []string {
	var out []string
	for _, step := range plan.Steps {
		if len(step.Queries) > 0 {
			out = append(out, step.Queries...)
			continue
		}
		out = append(out, step.Goal)
	}
	if len(out) == 0 {
		out = append(out, query)
	}
	return out
}

func normalizeQueries(queries []string, max int) []string {
	seen := make(map[string]struct{}, len(queries))
	var out []string
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		key := strings.ToLower(q)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, q)
		if len(out) == max {
			break
		}
	}
	return out
}
