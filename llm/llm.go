// Package llm defines the completion backend contract the research workflow
// depends on. Concrete providers live under contrib/provider; tests use
// in-package stubs.
package llm

import (
	"context"

	"github.com/sweetpotato0/scholarly/message"
)

// Client is a blocking request-response completion backend. Implementations
// carry their own model, temperature and token settings; the workflow only
// sends an ordered conversation and reads back one assistant message.
type Client interface {
	Generate(ctx context.Context, messages []*message.Message) (*message.Message, error)
}

// Func adapts a plain function to the Client interface.
type Func func(ctx context.Context, messages []*message.Message) (*message.Message, error)

// Generate implements Client.
func (f Func) Generate(ctx context.Context, messages []*message.Message) (*message.Message, error) {
	return f(ctx, messages)
}
