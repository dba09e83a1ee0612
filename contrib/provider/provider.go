// Package provider assembles concrete completion backends by name. The
// research workflow only sees llm.Client; this package maps configuration
// onto the SDK-specific constructors under claude, openai and gemini.
package provider

import (
	"context"
	"fmt"

	"github.com/sweetpotato0/scholarly/contrib/provider/claude"
	"github.com/sweetpotato0/scholarly/contrib/provider/gemini"
	"github.com/sweetpotato0/scholarly/contrib/provider/openai"
	"github.com/sweetpotato0/scholarly/llm"
)

// Supported provider names.
const (
	Claude = "claude"
	OpenAI = "openai"
	Gemini = "gemini"
)

// Settings carries everything needed to construct one backend client.
type Settings struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature float64
}

// Build returns a client for the named provider together with a cleanup
// function releasing any resources the underlying SDK holds.
func Build(ctx context.Context, s Settings) (llm.Client, func() error, error) {
	noop := func() error { return nil }

	switch s.Provider {
	case Claude:
		client := claude.New(&claude.Config{
			APIKey:      s.APIKey,
			Model:       s.Model,
			BaseURL:     s.BaseURL,
			MaxTokens:   s.MaxTokens,
			Temperature: s.Temperature,
		})
		return client, noop, nil
	case OpenAI:
		client := openai.New(&openai.Config{
			APIKey:      s.APIKey,
			BaseURL:     s.BaseURL,
			Model:       s.Model,
			MaxTokens:   s.MaxTokens,
			Temperature: s.Temperature,
		})
		return client, noop, nil
	case Gemini:
		client, err := gemini.New(ctx, &gemini.Config{
			APIKey:      s.APIKey,
			Model:       s.Model,
			MaxTokens:   int32(s.MaxTokens),
			Temperature: float32(s.Temperature),
		})
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown llm provider %q", s.Provider)
	}
}
