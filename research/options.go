package research

import (
	"time"

	"github.com/sweetpotato0/scholarly/cite"
	"github.com/sweetpotato0/scholarly/tokenizer"
)

// Config collects every tunable of the research pipeline.
type Config struct {
	Name string // workflow name used in logs and traces

	MaxRevisions     int           // critic-requested rewrites before the draft is accepted as-is
	MaxPlanSteps     int           // upper bound the planner is held to
	MaxSearchQueries int           // search queries issued per research turn
	MaxResults       int           // results requested from each searcher call
	MinEvidence      int           // citable entries required before the writer calls the model
	ToolTimeout      time.Duration // budget for a single searcher call
	MaxNodeVisits    int           // graph safety bound; must exceed MaxRevisions+1
	RefineQueries    bool          // let the researcher model rewrite search queries

	CitationStyle      cite.Style // bibliography style on the final result
	SnippetTokenBudget int        // evidence snippet cap when building prompts

	NoEvidenceMessage string // answer fallback when the pool holds nothing citable

	PlannerPrompt    string // system prompt template, var {{.MaxSteps}}
	ResearcherPrompt string // system prompt template, var {{.MaxQueries}}
	WriterPrompt     string // system prompt template, no vars
	CriticPrompt     string // system prompt template, no vars

	counter *tokenizer.Counter
}

// Option mutates the pipeline configuration.
type Option func(*Config)

// WithName labels the workflow in logs and traces.
func WithName(name string) Option {
	return func(c *Config) {
		if name != "" {
			c.Name = name
		}
	}
}

// WithMaxRevisions bounds how many times the critic can send a draft back.
func WithMaxRevisions(n int) Option {
	return func(c *Config) {
		if n >= 0 {
			c.MaxRevisions = n
		}
	}
}

// WithMaxPlanSteps bounds the plan size.
func WithMaxPlanSteps(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxPlanSteps = n
		}
	}
}

// WithMaxSearchQueries bounds the queries issued per research turn.
func WithMaxSearchQueries(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxSearchQueries = n
		}
	}
}

// WithMaxResults sets how many results each searcher call asks for.
func WithMaxResults(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxResults = n
		}
	}
}

// WithMinEvidence sets the citable-entry floor below which the writer skips
// the model and answers with the no-evidence fallback.
func WithMinEvidence(n int) Option {
	return func(c *Config) {
		if n >= 0 {
			c.MinEvidence = n
		}
	}
}

// WithToolTimeout bounds a single searcher call.
func WithToolTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.ToolTimeout = d
		}
	}
}

// WithMaxNodeVisits raises the graph loop bound.
func WithMaxNodeVisits(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxNodeVisits = n
		}
	}
}

// WithQueryRefinement toggles the researcher's model-assisted query rewrite.
func WithQueryRefinement(enabled bool) Option {
	return func(c *Config) { c.RefineQueries = enabled }
}

// WithCitationStyle picks the bibliography style for results.
func WithCitationStyle(style cite.Style) Option {
	return func(c *Config) {
		if style != "" {
			c.CitationStyle = style
		}
	}
}

// WithSnippetTokenBudget caps each evidence snippet in prompts.
func WithSnippetTokenBudget(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.SnippetTokenBudget = n
		}
	}
}

// WithNoEvidenceMessage overrides the answer used when nothing citable was
// gathered.
func WithNoEvidenceMessage(msg string) Option {
	return func(c *Config) {
		if msg != "" {
			c.NoEvidenceMessage = msg
		}
	}
}

// WithPlannerPrompt overrides the planner system prompt template.
func WithPlannerPrompt(tmpl string) Option {
	return func(c *Config) {
		if tmpl != "" {
			c.PlannerPrompt = tmpl
		}
	}
}

// WithResearcherPrompt overrides the researcher system prompt template.
func WithResearcherPrompt(tmpl string) Option {
	return func(c *Config) {
		if tmpl != "" {
			c.ResearcherPrompt = tmpl
		}
	}
}

// WithWriterPrompt overrides the writer system prompt template.
func WithWriterPrompt(tmpl string) Option {
	return func(c *Config) {
		if tmpl != "" {
			c.WriterPrompt = tmpl
		}
	}
}

// WithCriticPrompt overrides the critic system prompt template.
func WithCriticPrompt(tmpl string) Option {
	return func(c *Config) {
		if tmpl != "" {
			c.CriticPrompt = tmpl
		}
	}
}

// WithTokenCounter installs an exact tokenizer for snippet budgeting. Without
// one, a rune-based estimate is used.
func WithTokenCounter(counter *tokenizer.Counter) Option {
	return func(c *Config) {
		if counter != nil {
			c.counter = counter
		}
	}
}

func defaultConfig() *Config {
	return &Config{
		Name:               "research",
		MaxRevisions:       2,
		MaxPlanSteps:       4,
		MaxSearchQueries:   4,
		MaxResults:         5,
		MinEvidence:        1,
		ToolTimeout:        15 * time.Second,
		MaxNodeVisits:      12,
		RefineQueries:      true,
		CitationStyle:      cite.StylePlain,
		SnippetTokenBudget: 120,
		NoEvidenceMessage: "I could not gather any usable sources for this question, " +
			"so I cannot give a well-grounded answer. Rephrasing the question or " +
			"naming the systems or studies you care about may help.",
		PlannerPrompt: `You lead a small research team answering questions about
human-computer interaction. Break the user's question into a short ordered
plan of research subtasks.

Respond with JSON only, in exactly this shape:
{
  "strategy": "one sentence on how the steps fit together",
  "steps": [
    {"id": "step-1", "goal": "what this step finds out", "queries": ["search query"]}
  ]
}

Rules:
- At most {{.MaxSteps}} steps, fewest that cover the question.
- Each step has one concrete goal and one or two search-engine-ready queries.
- Prefer queries that name methods, systems or venues over broad phrases.`,
		ResearcherPrompt: `You turn a research plan into search queries for web and
academic paper search engines.

Respond with JSON only, in exactly this shape:
{"queries": ["first query", "second query"]}

Rules:
- At most {{.MaxQueries}} queries covering all plan steps.
- No duplicates or near-duplicates.
- Keep each query under a dozen words and free of quotation marks.`,
		WriterPrompt: `You write grounded answers about human-computer interaction
research. You are given the question, the research plan and a numbered list
of evidence snippets.

Rules:
- Use only the numbered evidence; never invent sources.
- Cite with bracket numbers like [1] immediately after the claim they back.
- If the evidence is thin or conflicting, say so plainly.
- Two to four short paragraphs, no headings, no bullet lists.
- When reviewer feedback is present, address every listed issue.`,
		CriticPrompt: `You review a draft answer about human-computer interaction
research for accuracy, citation discipline and completeness.

Respond with JSON only, in exactly this shape:
{"verdict": "approve", "issues": [], "notes": "one sentence"}

Rules:
- verdict is "approve" or "revise", nothing else.
- Use "revise" only for concrete, fixable problems; list each as an issue.
- Uncited factual claims and citations pointing at the wrong source are
  always issues.
- Do not request stylistic rewrites of an already accurate draft.`,
	}
}

func applyOptions(cfg *Config, opts ...Option) *Config {
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	if cfg.MaxNodeVisits <= cfg.MaxRevisions+1 {
		cfg.MaxNodeVisits = cfg.MaxRevisions + 2
	}
	return cfg
}
