package provider

import (
	"context"
	"strings"
	"testing"
)

func TestBuildClaude(t *testing.T) {
	client, cleanup, err := Build(context.Background(), Settings{
		Provider: Claude,
		APIKey:   "test-key",
	})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if client == nil {
		t.Fatal("nil client")
	}
	if err := cleanup(); err != nil {
		t.Errorf("cleanup error: %v", err)
	}
}

func TestBuildOpenAI(t *testing.T) {
	client, cleanup, err := Build(context.Background(), Settings{
		Provider: OpenAI,
		APIKey:   "test-key",
		Model:    "gpt-4o",
	})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if client == nil {
		t.Fatal("nil client")
	}
	if err := cleanup(); err != nil {
		t.Errorf("cleanup error: %v", err)
	}
}

func TestBuildGemini(t *testing.T) {
	client, cleanup, err := Build(context.Background(), Settings{
		Provider: Gemini,
		APIKey:   "test-key",
	})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if client == nil {
		t.Fatal("nil client")
	}
	cleanup()
}

func TestBuildGeminiRequiresKey(t *testing.T) {
	_, _, err := Build(context.Background(), Settings{Provider: Gemini})
	if err == nil {
		t.Fatal("expected error for missing gemini key")
	}
}

func TestBuildUnknownProvider(t *testing.T) {
	_, _, err := Build(context.Background(), Settings{Provider: "cohere"})
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if !strings.Contains(err.Error(), "unknown llm provider") {
		t.Errorf("unexpected error: %v", err)
	}
}
