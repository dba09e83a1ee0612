package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweetpotato0/scholarly/guardrail"
	"github.com/sweetpotato0/scholarly/safety"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `
llm:
  provider: openai
  model: gpt-4o-mini
  request_interval: 2s
workflow:
  max_revisions: 3
  tool_timeout: 30s
safety:
  on_violation: sanitize
audit:
  backend: file
  path: /tmp/audit.jsonl
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("llm = %+v", cfg.LLM)
	}
	if cfg.LLM.RequestInterval.Duration != 2*time.Second {
		t.Errorf("request_interval = %v, want 2s", cfg.LLM.RequestInterval.Duration)
	}
	if cfg.Workflow.MaxRevisions != 3 {
		t.Errorf("max_revisions = %d, want 3", cfg.Workflow.MaxRevisions)
	}
	if cfg.Workflow.ToolTimeout.Duration != 30*time.Second {
		t.Errorf("tool_timeout = %v, want 30s", cfg.Workflow.ToolTimeout.Duration)
	}
	if cfg.Workflow.MaxPlanSteps != 4 {
		t.Errorf("max_plan_steps = %d, want the default kept", cfg.Workflow.MaxPlanSteps)
	}
	if cfg.Workflow.QueryTimeout.Duration != 5*time.Minute {
		t.Errorf("query_timeout = %v, want the default kept", cfg.Workflow.QueryTimeout.Duration)
	}
	if cfg.Safety.OnViolation != "sanitize" {
		t.Errorf("on_violation = %q", cfg.Safety.OnViolation)
	}
	if cfg.Audit.Backend != "file" || cfg.Audit.Path != "/tmp/audit.jsonl" {
		t.Errorf("audit = %+v", cfg.Audit)
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `
llm:
  provider: watson
  max_tokens: -5
  request_interval: -1s
safety:
  on_violation: shrug
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load accepted an invalid config")
	}
	msg := err.Error()
	for _, field := range []string{"llm.provider", "llm.max_tokens", "llm.request_interval", "safety.on_violation"} {
		if !strings.Contains(msg, field) {
			t.Errorf("error should mention %s:\n%s", field, msg)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load accepted a missing file")
	}
}

func TestApplyEnvFillsSecrets(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "ant-key")
	t.Setenv("SEMANTIC_SCHOLAR_API_KEY", "s2-key")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")

	cfg := Default()
	cfg.applyEnv()
	if cfg.LLM.APIKey != "ant-key" {
		t.Errorf("llm api key = %q", cfg.LLM.APIKey)
	}
	if cfg.Search.Papers.APIKey != "s2-key" {
		t.Errorf("papers api key = %q", cfg.Search.Papers.APIKey)
	}
	if cfg.Telemetry.Endpoint != "localhost:4317" {
		t.Errorf("telemetry endpoint = %q", cfg.Telemetry.Endpoint)
	}
}

func TestApplyEnvDoesNotOverwriteFileValues(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-key")
	cfg := Default()
	cfg.LLM.APIKey = "file-key"
	cfg.applyEnv()
	if cfg.LLM.APIKey != "file-key" {
		t.Errorf("api key = %q, want the file value kept", cfg.LLM.APIKey)
	}
}

func TestDurationUnmarshal(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    time.Duration
		wantErr bool
	}{
		{name: "string", in: `d: 1m30s`, want: 90 * time.Second},
		{name: "integer seconds", in: `d: 45`, want: 45 * time.Second},
		{name: "garbage", in: `d: soon`, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out struct {
				D Duration `yaml:"d"`
			}
			err := yaml.Unmarshal([]byte(tc.in), &out)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("unmarshal %q succeeded with %v", tc.in, out.D)
				}
				return
			}
			if err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if out.D.Duration != tc.want {
				t.Errorf("duration = %v, want %v", out.D.Duration, tc.want)
			}
		})
	}
}

func TestValidateRoleOverrides(t *testing.T) {
	cfg := Default()
	cfg.LLM.Roles = map[string]RoleModel{
		"writer": {Provider: "openai", Model: "gpt-4o"},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid role override rejected: %v", err)
	}

	cfg.LLM.Roles = map[string]RoleModel{
		"narrator": {Provider: "openai"},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown role accepted")
	}

	cfg.LLM.Roles = map[string]RoleModel{
		"critic": {Provider: "watson"},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown role provider accepted")
	}
}

func TestPolicyBridge(t *testing.T) {
	cfg := Default()
	cfg.Safety.OnViolation = "sanitize"
	cfg.Safety.InputRefusal = "custom input refusal"
	cfg.Safety.ProhibitedCategories = []string{"harmful_content"}

	policy := cfg.Policy()
	if policy.OnViolation != safety.PolicySanitize {
		t.Errorf("on_violation = %q", policy.OnViolation)
	}
	if policy.InputRefusal != "custom input refusal" {
		t.Errorf("input refusal = %q", policy.InputRefusal)
	}
	if policy.OutputRefusal == "" {
		t.Error("output refusal default lost")
	}
	if len(policy.ProhibitedCategories) != 1 || policy.ProhibitedCategories[0] != guardrail.CategoryHarmfulContent {
		t.Errorf("prohibited = %v", policy.ProhibitedCategories)
	}
}

func TestGuardrailRulesBridge(t *testing.T) {
	cfg := Default()
	cfg.Safety.MinQueryLength = 10
	cfg.Safety.MaxQueryLength = 500

	rules := cfg.GuardrailRules()
	if rules.MinLength != 10 || rules.MaxLength != 500 {
		t.Errorf("lengths = %d/%d, want 10/500", rules.MinLength, rules.MaxLength)
	}
	if len(rules.InjectionPatterns) == 0 || len(rules.TopicKeywords) == 0 {
		t.Error("default rule lists missing")
	}

	plain := Default().GuardrailRules()
	if plain.MinLength != guardrail.DefaultRules().MinLength {
		t.Errorf("unset override changed min length to %d", plain.MinLength)
	}
}

func TestValidatorAccumulates(t *testing.T) {
	v := NewValidator()
	v.RequireNonEmpty("a", "").
		RequirePositive("b", 0).
		ValidateOneOf("c", "x", "y", "z").
		ValidateFloatRange("d", 3.5, 0, 1)
	if !v.HasErrors() {
		t.Fatal("validator recorded no errors")
	}
	if got := len(v.Errors()); got != 4 {
		t.Fatalf("errors = %d, want 4", got)
	}
	msg := v.Error().Error()
	for _, field := range []string{"a", "b", "c", "d"} {
		if !strings.Contains(msg, "- "+field+":") {
			t.Errorf("combined error missing field %s:\n%s", field, msg)
		}
	}
}
