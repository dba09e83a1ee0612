package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/sweetpotato0/scholarly/cite"
	"github.com/sweetpotato0/scholarly/config"
	"github.com/sweetpotato0/scholarly/contrib/provider"
	"github.com/sweetpotato0/scholarly/contrib/search/duckduckgo"
	searchmcp "github.com/sweetpotato0/scholarly/contrib/search/mcp"
	"github.com/sweetpotato0/scholarly/contrib/search/semanticscholar"
	"github.com/sweetpotato0/scholarly/eval"
	"github.com/sweetpotato0/scholarly/guardrail"
	"github.com/sweetpotato0/scholarly/llm"
	"github.com/sweetpotato0/scholarly/mcp"
	"github.com/sweetpotato0/scholarly/middleware"
	"github.com/sweetpotato0/scholarly/pkg/logging"
	"github.com/sweetpotato0/scholarly/pkg/telemetry"
	"github.com/sweetpotato0/scholarly/research"
	"github.com/sweetpotato0/scholarly/safety"
	"github.com/sweetpotato0/scholarly/safety/store"
	"github.com/sweetpotato0/scholarly/tokenizer"
	"github.com/sweetpotato0/scholarly/tool"
)

// app bundles everything a subcommand needs, with a close function that
// unwinds whatever was set up.
type app struct {
	cfg         *config.Config
	pipeline    *research.Pipeline
	coordinator *safety.Coordinator
	registry    *tool.Registry
	clients     *clientSet

	cleanups []func() error
}

func (a *app) close() {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		_ = a.cleanups[i]()
	}
}

// clientSet caches provider clients so roles sharing a backend share one SDK
// client. When llm.request_interval is set, every client shares one rate
// limiter so pacing holds across roles.
type clientSet struct {
	cfg     *config.Config
	cache   map[string]llm.Client
	limiter *middleware.RateLimiter
	app     *app
}

// forRole returns the client for one agent role, honoring per-role overrides
// from llm.roles.
func (cs *clientSet) forRole(ctx context.Context, role string) (llm.Client, error) {
	settings := provider.Settings{
		Provider:    cs.cfg.LLM.Provider,
		APIKey:      cs.cfg.LLM.APIKey,
		BaseURL:     cs.cfg.LLM.BaseURL,
		Model:       cs.cfg.LLM.Model,
		MaxTokens:   int64(cs.cfg.LLM.MaxTokens),
		Temperature: cs.cfg.LLM.Temperature,
	}
	if override, ok := cs.cfg.LLM.Roles[role]; ok {
		if override.Provider != "" {
			settings.Provider = override.Provider
			settings.APIKey = "" // a different provider needs its own key
			settings.BaseURL = ""
		}
		if override.Model != "" {
			settings.Model = override.Model
		}
		if override.APIKey != "" {
			settings.APIKey = override.APIKey
		}
	}

	key := settings.Provider + "/" + settings.Model + "/" + settings.APIKey
	if client, ok := cs.cache[key]; ok {
		return client, nil
	}

	client, cleanup, err := provider.Build(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("building %s client for role %s: %w", settings.Provider, role, err)
	}
	if cs.limiter != nil {
		client = middleware.Wrap(client, role, cs.limiter)
	}
	cs.cache[key] = client
	cs.app.cleanups = append(cs.app.cleanups, cleanup)
	return client, nil
}

// buildApp assembles the research pipeline from the loaded configuration.
func buildApp(ctx context.Context) (*app, error) {
	a := &app{cfg: cfg}

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "scholarly",
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.Endpoint,
		SampleRatio:    cfg.Telemetry.SampleRatio,
		Disable:        !cfg.Telemetry.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}
	a.cleanups = append(a.cleanups, func() error { return shutdown(context.Background()) })

	a.clients = &clientSet{cfg: cfg, cache: make(map[string]llm.Client), app: a}
	if d := cfg.LLM.RequestInterval.Duration; d > 0 {
		a.clients.limiter = middleware.NewRateLimiter(d)
	}
	clients, err := buildRoleClients(ctx, a.clients)
	if err != nil {
		a.close()
		return nil, err
	}

	registry, err := buildRegistry(ctx, a)
	if err != nil {
		a.close()
		return nil, err
	}
	a.registry = registry

	coordinator, err := buildCoordinator(a)
	if err != nil {
		a.close()
		return nil, err
	}
	a.coordinator = coordinator

	opts, err := researchOptions(cfg)
	if err != nil {
		a.close()
		return nil, err
	}

	pipeline, err := research.NewPipeline(clients, registry, coordinator, opts...)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("building pipeline: %w", err)
	}
	a.pipeline = pipeline
	return a, nil
}

func buildRoleClients(ctx context.Context, cs *clientSet) (research.Clients, error) {
	var clients research.Clients
	var err error

	if clients.Planner, err = cs.forRole(ctx, "planner"); err != nil {
		return clients, err
	}
	if clients.Researcher, err = cs.forRole(ctx, "researcher"); err != nil {
		return clients, err
	}
	if clients.Writer, err = cs.forRole(ctx, "writer"); err != nil {
		return clients, err
	}
	if clients.Critic, err = cs.forRole(ctx, "critic"); err != nil {
		return clients, err
	}
	return clients, nil
}

func buildRegistry(ctx context.Context, a *app) (*tool.Registry, error) {
	registry := tool.NewRegistry()

	if cfg.Search.Web.Enabled {
		if err := registry.Register(duckduckgo.New(nil)); err != nil {
			return nil, err
		}
	}
	if cfg.Search.Papers.Enabled {
		searcher := semanticscholar.New(&semanticscholar.Config{
			APIKey:     cfg.Search.Papers.APIKey,
			MaxRetries: 1,
		})
		if err := registry.Register(searcher); err != nil {
			return nil, err
		}
	}
	if cfg.Search.MCP.Enabled {
		client, err := connectMCP(ctx, cfg.Search.MCP.Command)
		if err != nil {
			return nil, fmt.Errorf("connecting MCP search server: %w", err)
		}
		a.cleanups = append(a.cleanups, client.Close)

		searcher, err := searchmcp.New(client, &searchmcp.Config{
			ToolName: cfg.Search.MCP.ToolName,
		})
		if err != nil {
			return nil, err
		}
		if err := registry.Register(searcher); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// connectMCP treats http(s) commands as streamable endpoints and anything
// else as a server binary to spawn over stdio.
func connectMCP(ctx context.Context, command string) (*mcp.Client, error) {
	if strings.HasPrefix(command, "http://") || strings.HasPrefix(command, "https://") {
		return mcp.NewStreamableClient(ctx, command)
	}
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return nil, fmt.Errorf("mcp command is empty")
	}
	return mcp.NewStdioClient(ctx, parts[0], mcp.WithCommandArgs(parts[1:]...))
}

func buildCoordinator(a *app) (*safety.Coordinator, error) {
	var sink safety.Sink
	switch cfg.Audit.Backend {
	case "file":
		fileSink, err := store.NewFileSink(cfg.Audit.Path)
		if err != nil {
			return nil, fmt.Errorf("opening audit log: %w", err)
		}
		sink = fileSink
	case "redis":
		sink = store.NewRedisSink(&store.RedisConfig{
			Addr:     cfg.Audit.Redis.Addr,
			Password: cfg.Audit.Redis.Password,
			DB:       cfg.Audit.Redis.DB,
			Stream:   cfg.Audit.Redis.Stream,
			MaxLen:   cfg.Audit.Redis.MaxLen,
		})
	case "none":
		sink = safety.NopSink()
	default:
		sink = store.NewMemorySink()
	}

	coordinator := safety.NewCoordinator(guardrail.NewEngine(cfg.GuardrailRules()), cfg.Policy(), sink)
	a.cleanups = append(a.cleanups, coordinator.Close)
	return coordinator, nil
}

// researchOptions maps the workflow and prompts sections onto pipeline
// options.
func researchOptions(cfg *config.Config) ([]research.Option, error) {
	opts := []research.Option{
		research.WithMaxRevisions(cfg.Workflow.MaxRevisions),
		research.WithMaxPlanSteps(cfg.Workflow.MaxPlanSteps),
		research.WithMaxSearchQueries(cfg.Workflow.MaxSearchQueries),
		research.WithMinEvidence(cfg.Workflow.MinEvidence),
		research.WithToolTimeout(cfg.Workflow.ToolTimeout.Duration),
		research.WithMaxNodeVisits(cfg.Workflow.MaxNodeVisits),
		research.WithQueryRefinement(cfg.Workflow.RefineQueries),
		research.WithMaxResults(maxSearchResults(cfg)),
	}

	// Exact token counting needs the model's BPE tables, which may not be
	// fetchable offline; the writer falls back to an estimate without it.
	if counter, err := tokenizer.NewCounter(cfg.LLM.Model); err == nil {
		opts = append(opts, research.WithTokenCounter(counter))
	} else {
		logging.WithComponent("cli").Debug("tokenizer unavailable, using estimates",
			"model", cfg.LLM.Model, "error", err)
	}

	if cfg.Workflow.CitationStyle != "" {
		style, err := cite.ParseStyle(cfg.Workflow.CitationStyle)
		if err != nil {
			return nil, err
		}
		opts = append(opts, research.WithCitationStyle(style))
	}

	if cfg.Prompts.Planner != "" {
		opts = append(opts, research.WithPlannerPrompt(cfg.Prompts.Planner))
	}
	if cfg.Prompts.Researcher != "" {
		opts = append(opts, research.WithResearcherPrompt(cfg.Prompts.Researcher))
	}
	if cfg.Prompts.Writer != "" {
		opts = append(opts, research.WithWriterPrompt(cfg.Prompts.Writer))
	}
	if cfg.Prompts.Critic != "" {
		opts = append(opts, research.WithCriticPrompt(cfg.Prompts.Critic))
	}
	return opts, nil
}

// queryContext bounds one pipeline run by the configured query timeout.
// A zero timeout leaves the parent context untouched.
func queryContext(parent context.Context) (context.Context, context.CancelFunc) {
	if d := cfg.Workflow.QueryTimeout.Duration; d > 0 {
		return context.WithTimeout(parent, d)
	}
	return parent, func() {}
}

// maxSearchResults takes the larger of the per-backend limits so one option
// covers both; individual searchers still cap what they return.
func maxSearchResults(cfg *config.Config) int {
	n := cfg.Search.Web.MaxResults
	if cfg.Search.Papers.MaxResults > n {
		n = cfg.Search.Papers.MaxResults
	}
	if n <= 0 {
		n = 5
	}
	return n
}

// buildJudge assembles the evaluation judge on the judge role's client.
func buildJudge(ctx context.Context, a *app) (*eval.Judge, error) {
	client, err := a.clients.forRole(ctx, "judge")
	if err != nil {
		return nil, err
	}
	var opts []eval.Option
	if cfg.Prompts.Judge != "" {
		opts = append(opts, eval.WithJudgePrompt(cfg.Prompts.Judge))
	}
	return eval.NewJudge(client, opts...)
}
