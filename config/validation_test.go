package config

import (
	"strings"
	"testing"
)

func TestValidatorRequireNonEmpty(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{name: "non-empty value", value: "claude", wantErr: false},
		{name: "empty value", value: "", wantErr: true},
		{name: "whitespace is not empty", value: " ", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			v.RequireNonEmpty("llm.provider", tt.value)
			if v.HasErrors() != tt.wantErr {
				t.Errorf("HasErrors() = %v, want %v", v.HasErrors(), tt.wantErr)
			}
		})
	}
}

func TestValidatorRequirePositive(t *testing.T) {
	tests := []struct {
		name    string
		value   int
		wantErr bool
	}{
		{name: "positive value", value: 3, wantErr: false},
		{name: "one is positive", value: 1, wantErr: false},
		{name: "zero rejected", value: 0, wantErr: true},
		{name: "negative rejected", value: -2, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			v.RequirePositive("workflow.max_plan_steps", tt.value)
			if v.HasErrors() != tt.wantErr {
				t.Errorf("HasErrors() = %v, want %v", v.HasErrors(), tt.wantErr)
			}
		})
	}
}

func TestValidatorValidateRange(t *testing.T) {
	tests := []struct {
		name    string
		value   int
		min     int
		max     int
		wantErr bool
	}{
		{name: "inside range", value: 2, min: 0, max: 10, wantErr: false},
		{name: "at lower bound", value: 0, min: 0, max: 10, wantErr: false},
		{name: "at upper bound", value: 10, min: 0, max: 10, wantErr: false},
		{name: "below range", value: -1, min: 0, max: 10, wantErr: true},
		{name: "above range", value: 11, min: 0, max: 10, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			v.ValidateRange("workflow.max_revisions", tt.value, tt.min, tt.max)
			if v.HasErrors() != tt.wantErr {
				t.Errorf("HasErrors() = %v, want %v", v.HasErrors(), tt.wantErr)
			}
		})
	}
}

func TestValidatorValidateFloatRange(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		min     float64
		max     float64
		wantErr bool
	}{
		{name: "inside range", value: 0.7, min: 0, max: 2, wantErr: false},
		{name: "at lower bound", value: 0, min: 0, max: 2, wantErr: false},
		{name: "at upper bound", value: 2, min: 0, max: 2, wantErr: false},
		{name: "below range", value: -0.1, min: 0, max: 2, wantErr: true},
		{name: "above range", value: 2.5, min: 0, max: 2, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			v.ValidateFloatRange("llm.temperature", tt.value, tt.min, tt.max)
			if v.HasErrors() != tt.wantErr {
				t.Errorf("HasErrors() = %v, want %v", v.HasErrors(), tt.wantErr)
			}
		})
	}
}

func TestValidatorValidateDBNumber(t *testing.T) {
	tests := []struct {
		name    string
		db      int
		wantErr bool
	}{
		{name: "default database", db: 0, wantErr: false},
		{name: "highest database", db: 15, wantErr: false},
		{name: "negative database", db: -1, wantErr: true},
		{name: "database too high", db: 16, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			v.ValidateDBNumber("audit.redis.db", tt.db)
			if v.HasErrors() != tt.wantErr {
				t.Errorf("HasErrors() = %v, want %v", v.HasErrors(), tt.wantErr)
			}
		})
	}
}

func TestValidatorValidateOneOf(t *testing.T) {
	providers := []string{"claude", "openai", "gemini"}

	tests := []struct {
		name    string
		value   string
		allowed []string
		wantErr bool
	}{
		{name: "known provider", value: "claude", allowed: providers, wantErr: false},
		{name: "last allowed value", value: "gemini", allowed: providers, wantErr: false},
		{name: "unknown provider", value: "cohere", allowed: providers, wantErr: true},
		{name: "case sensitive", value: "Claude", allowed: providers, wantErr: true},
		{name: "empty allowed list", value: "claude", allowed: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			v.ValidateOneOf("llm.provider", tt.value, tt.allowed...)
			if v.HasErrors() != tt.wantErr {
				t.Errorf("HasErrors() = %v, want %v", v.HasErrors(), tt.wantErr)
			}
		})
	}
}

func TestValidatorCleanByDefault(t *testing.T) {
	v := NewValidator()
	if v.HasErrors() {
		t.Error("fresh validator reports errors")
	}
	if err := v.Error(); err != nil {
		t.Errorf("Error() = %v, want nil", err)
	}
	if got := len(v.Errors()); got != 0 {
		t.Errorf("Errors() has %d entries, want 0", got)
	}
}

func TestValidatorErrorMessages(t *testing.T) {
	v := NewValidator()
	v.RequirePositive("safety.max_input_length", -5)
	v.ValidateOneOf("audit.backend", "kafka", "memory", "file", "redis", "none")

	errs := v.Errors()
	if len(errs) != 2 {
		t.Fatalf("Errors() has %d entries, want 2", len(errs))
	}
	if errs[0].Field != "safety.max_input_length" {
		t.Errorf("first error field = %q", errs[0].Field)
	}
	if !strings.Contains(errs[0].Message, "got -5") {
		t.Errorf("positive check message missing value: %s", errs[0].Message)
	}
	if !strings.Contains(errs[1].Message, `got "kafka"`) {
		t.Errorf("one-of check message missing value: %s", errs[1].Message)
	}
}

func TestValidationErrorFormat(t *testing.T) {
	e := ValidationError{Field: "llm.model", Message: "value cannot be empty"}
	msg := e.Error()
	if !strings.Contains(msg, `"llm.model"`) {
		t.Errorf("error message missing field name: %s", msg)
	}
	if !strings.Contains(msg, "value cannot be empty") {
		t.Errorf("error message missing detail: %s", msg)
	}
}
