package claude

import "testing"

func TestNewFillsDefaults(t *testing.T) {
	p := New(&Config{APIKey: "test-key"})

	if p.config.Model != "claude-sonnet-4-5-20250929" {
		t.Errorf("default model = %q", p.config.Model)
	}
	if p.config.MaxTokens != 2048 {
		t.Errorf("default max tokens = %d", p.config.MaxTokens)
	}
}

func TestNewKeepsExplicitConfig(t *testing.T) {
	p := New(&Config{
		APIKey:      "test-key",
		Model:       "claude-3-5-haiku-latest",
		MaxTokens:   512,
		Temperature: 0.2,
	})

	if p.config.Model != "claude-3-5-haiku-latest" {
		t.Errorf("model overwritten: %q", p.config.Model)
	}
	if p.config.MaxTokens != 512 {
		t.Errorf("max tokens overwritten: %d", p.config.MaxTokens)
	}
	if p.config.Temperature != 0.2 {
		t.Errorf("temperature overwritten: %v", p.config.Temperature)
	}
}
