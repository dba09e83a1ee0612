// Package config loads, defaults and validates the application
// configuration from a YAML file with environment overrides for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweetpotato0/scholarly/guardrail"
	"github.com/sweetpotato0/scholarly/safety"
)

// Duration wraps time.Duration so YAML can carry values like "15s".
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses Go duration strings and bare integers (seconds).
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err == nil {
		parsed, perr := time.ParseDuration(raw)
		if perr != nil {
			return fmt.Errorf("invalid duration %q: %w", raw, perr)
		}
		d.Duration = parsed
		return nil
	}
	var secs int64
	if err := value.Decode(&secs); err != nil {
		return fmt.Errorf("invalid duration value on line %d", value.Line)
	}
	d.Duration = time.Duration(secs) * time.Second
	return nil
}

// MarshalYAML renders the duration back as a string.
func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

// RoleModel overrides the provider or model for one agent role.
type RoleModel struct {
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
}

// LLMConfig selects the completion backend.
type LLMConfig struct {
	Provider    string               `yaml:"provider"`
	Model       string               `yaml:"model"`
	APIKey      string               `yaml:"api_key,omitempty"`
	BaseURL     string               `yaml:"base_url,omitempty"`
	Temperature float64              `yaml:"temperature"`
	MaxTokens   int                  `yaml:"max_tokens"`
	// RequestInterval spaces completion calls across all roles. Zero
	// disables pacing.
	RequestInterval Duration             `yaml:"request_interval,omitempty"`
	Roles           map[string]RoleModel `yaml:"roles,omitempty"`
}

// WorkflowConfig bounds the research loop.
type WorkflowConfig struct {
	MaxRevisions     int      `yaml:"max_revisions"`
	MaxPlanSteps     int      `yaml:"max_plan_steps"`
	MaxSearchQueries int      `yaml:"max_search_queries"`
	MinEvidence      int      `yaml:"min_evidence"`
	ToolTimeout      Duration `yaml:"tool_timeout"`
	QueryTimeout     Duration `yaml:"query_timeout"`
	MaxNodeVisits    int      `yaml:"max_node_visits"`
	RefineQueries    bool     `yaml:"refine_queries"`
	CitationStyle    string   `yaml:"citation_style"`
}

// SafetyConfig shapes guardrail policy.
type SafetyConfig struct {
	OnViolation          string   `yaml:"on_violation"`
	ProhibitedCategories []string `yaml:"prohibited_categories,omitempty"`
	InputRefusal         string   `yaml:"input_refusal,omitempty"`
	OutputRefusal        string   `yaml:"output_refusal,omitempty"`
	MinQueryLength       int      `yaml:"min_query_length,omitempty"`
	MaxQueryLength       int      `yaml:"max_query_length,omitempty"`
}

// WebSearchConfig configures the HTML web searcher.
type WebSearchConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxResults int  `yaml:"max_results"`
}

// PaperSearchConfig configures the academic paper searcher.
type PaperSearchConfig struct {
	Enabled    bool   `yaml:"enabled"`
	MaxResults int    `yaml:"max_results"`
	APIKey     string `yaml:"api_key,omitempty"`
}

// MCPSearchConfig configures an MCP server exposing a search tool.
type MCPSearchConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Command  string `yaml:"command,omitempty"`
	ToolName string `yaml:"tool_name,omitempty"`
}

// SearchConfig groups the tool providers.
type SearchConfig struct {
	Web    WebSearchConfig   `yaml:"web"`
	Papers PaperSearchConfig `yaml:"papers"`
	MCP    MCPSearchConfig   `yaml:"mcp"`
}

// RedisAuditConfig locates the Redis audit stream.
type RedisAuditConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`
	Stream   string `yaml:"stream"`
	MaxLen   int64  `yaml:"max_len"`
}

// AuditConfig selects where safety audit records go.
type AuditConfig struct {
	Backend string           `yaml:"backend"`
	Path    string           `yaml:"path,omitempty"`
	Redis   RedisAuditConfig `yaml:"redis"`
}

// TelemetryConfig controls trace export.
type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint,omitempty"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// EvaluationConfig drives the evaluate command.
type EvaluationConfig struct {
	Concurrency   int     `yaml:"concurrency"`
	PassThreshold float64 `yaml:"pass_threshold"`
	MaxQueries    int     `yaml:"max_queries,omitempty"`
	Queries       string  `yaml:"queries"`
	Report        string  `yaml:"report"`
}

// PromptsConfig optionally overrides the built-in role prompts.
type PromptsConfig struct {
	Planner    string `yaml:"planner,omitempty"`
	Researcher string `yaml:"researcher,omitempty"`
	Writer     string `yaml:"writer,omitempty"`
	Critic     string `yaml:"critic,omitempty"`
	Judge      string `yaml:"judge,omitempty"`
}

// LoggingConfig shapes slog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the whole application configuration.
type Config struct {
	LLM        LLMConfig        `yaml:"llm"`
	Workflow   WorkflowConfig   `yaml:"workflow"`
	Safety     SafetyConfig     `yaml:"safety"`
	Search     SearchConfig     `yaml:"search"`
	Audit      AuditConfig      `yaml:"audit"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Prompts    PromptsConfig    `yaml:"prompts"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "claude",
			Model:       "claude-sonnet-4-5",
			Temperature: 0.3,
			MaxTokens:   2048,
		},
		Workflow: WorkflowConfig{
			MaxRevisions:     2,
			MaxPlanSteps:     4,
			MaxSearchQueries: 4,
			MinEvidence:      1,
			ToolTimeout:      Duration{15 * time.Second},
			QueryTimeout:     Duration{5 * time.Minute},
			MaxNodeVisits:    12,
			RefineQueries:    true,
			CitationStyle:    "plain",
		},
		Safety: SafetyConfig{
			OnViolation: "refuse",
			ProhibitedCategories: []string{
				string(guardrail.CategoryHarmfulContent),
				string(guardrail.CategoryPersonalAttacks),
				string(guardrail.CategoryMisinformation),
			},
		},
		Search: SearchConfig{
			Web:    WebSearchConfig{Enabled: true, MaxResults: 5},
			Papers: PaperSearchConfig{Enabled: true, MaxResults: 5},
		},
		Audit: AuditConfig{
			Backend: "memory",
			Path:    "scholarly_audit.jsonl",
			Redis: RedisAuditConfig{
				Addr:   "localhost:6379",
				Stream: "scholarly:audit",
				MaxLen: 10000,
			},
		},
		Telemetry: TelemetryConfig{
			SampleRatio: 1.0,
		},
		Evaluation: EvaluationConfig{
			Concurrency:   2,
			PassThreshold: 0.7,
			Queries:       "data/example_queries.json",
			Report:        "eval_report.json",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path (when non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv fills secrets and endpoints from the environment when the file
// left them empty. Keys never have to live in config files.
func (c *Config) applyEnv() {
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv(providerKeyEnv(c.LLM.Provider))
	}
	for role, rm := range c.LLM.Roles {
		if rm.APIKey == "" && rm.Provider != "" {
			rm.APIKey = os.Getenv(providerKeyEnv(rm.Provider))
			c.LLM.Roles[role] = rm
		}
	}
	if c.Search.Papers.APIKey == "" {
		c.Search.Papers.APIKey = os.Getenv("SEMANTIC_SCHOLAR_API_KEY")
	}
	if c.Telemetry.Endpoint == "" {
		c.Telemetry.Endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if v := os.Getenv("SCHOLARLY_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SCHOLARLY_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

func providerKeyEnv(provider string) string {
	switch provider {
	case "claude":
		return "ANTHROPIC_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "gemini":
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

var agentRoles = []string{"planner", "researcher", "writer", "critic", "judge"}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	v := NewValidator()

	v.ValidateOneOf("llm.provider", c.LLM.Provider, "claude", "openai", "gemini")
	v.RequireNonEmpty("llm.model", c.LLM.Model)
	v.ValidateFloatRange("llm.temperature", c.LLM.Temperature, 0.0, 2.0)
	v.RequirePositive("llm.max_tokens", c.LLM.MaxTokens)
	if c.LLM.RequestInterval.Duration < 0 {
		v.RequirePositive("llm.request_interval", -1)
	}
	for role, rm := range c.LLM.Roles {
		v.ValidateOneOf("llm.roles."+role, role, agentRoles...)
		if rm.Provider != "" {
			v.ValidateOneOf("llm.roles."+role+".provider", rm.Provider, "claude", "openai", "gemini")
		}
	}

	v.ValidateRange("workflow.max_revisions", c.Workflow.MaxRevisions, 0, 10)
	v.RequirePositive("workflow.max_plan_steps", c.Workflow.MaxPlanSteps)
	v.RequirePositive("workflow.max_search_queries", c.Workflow.MaxSearchQueries)
	v.ValidateRange("workflow.min_evidence", c.Workflow.MinEvidence, 0, 100)
	v.ValidateOneOf("workflow.citation_style", c.Workflow.CitationStyle, "apa", "ieee", "plain", "")
	if c.Workflow.ToolTimeout.Duration <= 0 {
		v.RequirePositive("workflow.tool_timeout", 0)
	}
	if c.Workflow.QueryTimeout.Duration < 0 {
		v.RequirePositive("workflow.query_timeout", -1)
	}
	v.RequirePositive("workflow.max_node_visits", c.Workflow.MaxNodeVisits)

	v.ValidateOneOf("safety.on_violation", c.Safety.OnViolation, "refuse", "sanitize")
	if c.Safety.MinQueryLength != 0 {
		v.RequirePositive("safety.min_query_length", c.Safety.MinQueryLength)
	}
	if c.Safety.MaxQueryLength != 0 && c.Safety.MaxQueryLength < c.Safety.MinQueryLength {
		v.ValidateRange("safety.max_query_length", c.Safety.MaxQueryLength, c.Safety.MinQueryLength, 1<<20)
	}

	if c.Search.Web.Enabled {
		v.RequirePositive("search.web.max_results", c.Search.Web.MaxResults)
	}
	if c.Search.Papers.Enabled {
		v.RequirePositive("search.papers.max_results", c.Search.Papers.MaxResults)
	}
	if c.Search.MCP.Enabled {
		v.RequireNonEmpty("search.mcp.command", c.Search.MCP.Command)
	}

	v.ValidateOneOf("audit.backend", c.Audit.Backend, "memory", "file", "redis", "none")
	switch c.Audit.Backend {
	case "file":
		v.RequireNonEmpty("audit.path", c.Audit.Path)
	case "redis":
		v.RequireNonEmpty("audit.redis.addr", c.Audit.Redis.Addr)
		v.ValidateDBNumber("audit.redis.db", c.Audit.Redis.DB)
		v.RequireNonEmpty("audit.redis.stream", c.Audit.Redis.Stream)
	}

	v.ValidateFloatRange("telemetry.sample_ratio", c.Telemetry.SampleRatio, 0.0, 1.0)

	v.RequirePositive("evaluation.concurrency", c.Evaluation.Concurrency)
	v.ValidateFloatRange("evaluation.pass_threshold", c.Evaluation.PassThreshold, 0.0, 1.0)
	if c.Evaluation.MaxQueries != 0 {
		v.RequirePositive("evaluation.max_queries", c.Evaluation.MaxQueries)
	}

	v.ValidateOneOf("logging.level", c.Logging.Level, "debug", "info", "warn", "error")
	v.ValidateOneOf("logging.format", c.Logging.Format, "text", "json")

	return v.Error()
}

// GuardrailRules builds the rule set, applying length overrides when set.
func (c *Config) GuardrailRules() *guardrail.RuleSet {
	rules := guardrail.DefaultRules()
	if c.Safety.MinQueryLength > 0 {
		rules.MinLength = c.Safety.MinQueryLength
	}
	if c.Safety.MaxQueryLength > 0 {
		rules.MaxLength = c.Safety.MaxQueryLength
	}
	return rules
}

// Policy builds the safety policy from the safety section.
func (c *Config) Policy() safety.Policy {
	policy := safety.DefaultPolicy()
	if c.Safety.OnViolation == "sanitize" {
		policy.OnViolation = safety.PolicySanitize
	}
	if c.Safety.InputRefusal != "" {
		policy.InputRefusal = c.Safety.InputRefusal
	}
	if c.Safety.OutputRefusal != "" {
		policy.OutputRefusal = c.Safety.OutputRefusal
	}
	if len(c.Safety.ProhibitedCategories) > 0 {
		policy.ProhibitedCategories = make([]guardrail.Category, 0, len(c.Safety.ProhibitedCategories))
		for _, cat := range c.Safety.ProhibitedCategories {
			policy.ProhibitedCategories = append(policy.ProhibitedCategories, guardrail.Category(cat))
		}
	}
	return policy
}
