// Package middleware wraps llm.Client values with cross-cutting call
// behavior: bounded retry with backoff, call pacing, and call logging.
// The research pipeline wraps every role client at construction time.
package middleware

import (
	"context"

	"github.com/sweetpotato0/scholarly/llm"
	"github.com/sweetpotato0/scholarly/message"
)

// Context represents one completion call as it flows through the chain.
type Context struct {
	// Role is the agent role on whose behalf the call is made.
	Role string

	// Messages is the outgoing conversation.
	Messages []*message.Message

	// Response is set by the terminal handler once the backend answers.
	Response *message.Message

	// Metadata passes data between middlewares.
	Metadata map[string]any

	context context.Context
}

// NewContext creates a middleware context for one call.
func NewContext(ctx context.Context, role string, msgs []*message.Message) *Context {
	return &Context{
		Role:     role,
		Messages: msgs,
		Metadata: make(map[string]any),
		context:  ctx,
	}
}

// Context returns the underlying context.Context.
func (c *Context) Context() context.Context {
	return c.context
}

// Handler passes control to the next middleware in the chain.
type Handler func(*Context) error

// Middleware intercepts completion calls. Returning an error stops the chain.
type Middleware interface {
	// Name returns the middleware name for logging and debugging.
	Name() string

	// Execute runs the middleware logic around next.
	Execute(ctx *Context, next Handler) error
}

// Chain is an ordered sequence of middleware.
type Chain struct {
	middlewares []Middleware
}

// NewChain creates a new middleware chain.
func NewChain(middlewares ...Middleware) *Chain {
	return &Chain{middlewares: middlewares}
}

// Execute runs the chain, ending at finalHandler.
func (c *Chain) Execute(ctx *Context, finalHandler Handler) error {
	return c.execute(ctx, 0, finalHandler)
}

func (c *Chain) execute(ctx *Context, index int, finalHandler Handler) error {
	if index >= len(c.middlewares) {
		return finalHandler(ctx)
	}

	next := func(ctx *Context) error {
		return c.execute(ctx, index+1, finalHandler)
	}

	return c.middlewares[index].Execute(ctx, next)
}

// Wrap returns a client whose Generate calls pass through the given
// middlewares before reaching inner. Role labels the calls for logging.
func Wrap(inner llm.Client, role string, middlewares ...Middleware) llm.Client {
	if len(middlewares) == 0 {
		return inner
	}
	return &wrapped{inner: inner, role: role, chain: NewChain(middlewares...)}
}

type wrapped struct {
	inner llm.Client
	role  string
	chain *Chain
}

func (w *wrapped) Generate(ctx context.Context, msgs []*message.Message) (*message.Message, error) {
	mctx := NewContext(ctx, w.role, msgs)
	err := w.chain.Execute(mctx, func(c *Context) error {
		resp, err := w.inner.Generate(c.Context(), c.Messages)
		if err != nil {
			return err
		}
		c.Response = resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mctx.Response, nil
}
