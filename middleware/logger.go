package middleware

import (
	"log/slog"
	"time"

	"github.com/sweetpotato0/scholarly/pkg/logging"
)

// CallLogger logs one line per completion call with role, message count,
// response size and duration.
type CallLogger struct {
	logger *slog.Logger
}

// NewCallLogger creates a call logging middleware.
func NewCallLogger() *CallLogger {
	return &CallLogger{logger: logging.WithComponent("llm")}
}

// Name returns the middleware name.
func (m *CallLogger) Name() string { return "CallLogger" }

// Execute times the downstream call and logs the outcome.
func (m *CallLogger) Execute(ctx *Context, next Handler) error {
	start := time.Now()
	err := next(ctx)
	elapsed := time.Since(start)

	if err != nil {
		m.logger.Error("llm call failed",
			"role", ctx.Role,
			"messages", len(ctx.Messages),
			"elapsed", elapsed.String(),
			"error", err)
		return err
	}

	size := 0
	if ctx.Response != nil {
		size = len(ctx.Response.Content)
	}
	m.logger.Debug("llm call completed",
		"role", ctx.Role,
		"messages", len(ctx.Messages),
		"response_chars", size,
		"elapsed", elapsed.String())
	return nil
}
