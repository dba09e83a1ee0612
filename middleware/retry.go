package middleware

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/sweetpotato0/scholarly/pkg/logging"
)

// Retry re-issues a failed completion call with exponential backoff. The
// workflow default is a single retry before the turn escalates to a backend
// failure.
type Retry struct {
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// NewRetry creates a retry middleware. maxRetries <= 0 means one retry;
// baseDelay <= 0 means 500ms.
func NewRetry(maxRetries int, baseDelay time.Duration) *Retry {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	return &Retry{
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logging.WithComponent("middleware.retry"),
	}
}

// Name returns the middleware name.
func (m *Retry) Name() string { return "Retry" }

// Execute attempts next, retrying on error until the budget is spent.
func (m *Retry) Execute(ctx *Context, next Handler) error {
	var lastErr error

	delay := m.baseDelay
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		if attempt > 0 {
			m.logger.Warn("retrying llm call",
				"role", ctx.Role,
				"attempt", attempt,
				"delay", delay.String(),
				"error", lastErr)

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Context().Done():
				timer.Stop()
				return ctx.Context().Err()
			case <-timer.C:
			}
			delay *= 2
		}

		lastErr = next(ctx)
		if lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("llm call failed after %d retries: %w", m.maxRetries, lastErr)
}
