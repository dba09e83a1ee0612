// Package safety turns raw guardrail verdicts into a single enforceable
// decision per text, applies the configured violation policy, and audits
// every check through a pluggable sink.
package safety

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sweetpotato0/scholarly/guardrail"
	"github.com/sweetpotato0/scholarly/pkg/logging"
)

// Violation policy actions.
const (
	PolicyRefuse   = "refuse"
	PolicySanitize = "sanitize"
)

// Policy is the configurable part of the coordinator. OnViolation picks what
// happens to blocking verdicts: "refuse" keeps them blocking, "sanitize"
// downgrades them to SANITIZE. Prompt injection blocks under either setting.
type Policy struct {
	OnViolation          string
	InputRefusal         string
	OutputRefusal        string
	ProhibitedCategories []guardrail.Category
}

// DefaultPolicy refuses on violations with the stock refusal messages.
func DefaultPolicy() Policy {
	return Policy{
		OnViolation:   PolicyRefuse,
		InputRefusal:  "Your query cannot be processed due to safety policies.",
		OutputRefusal: "I cannot provide this response due to safety policies.",
		ProhibitedCategories: []guardrail.Category{
			guardrail.CategoryHarmfulContent,
			guardrail.CategoryPersonalAttacks,
			guardrail.CategoryMisinformation,
		},
	}
}

// Decision is the reduction of one check's verdicts: the strictest action
// wins. Sanitized is set only when Action is SANITIZE; the caller keeps the
// original text.
type Decision struct {
	Direction guardrail.Direction `json:"direction"`
	Action    guardrail.Action    `json:"action"`
	Verdicts  []guardrail.Verdict `json:"verdicts,omitempty"`
	Sanitized string              `json:"-"`
	CheckedAt time.Time           `json:"checked_at"`
}

// Blocked reports whether the text must not pass.
func (d Decision) Blocked() bool { return d.Action == guardrail.ActionBlock }

// Categories lists the distinct verdict categories in verdict order.
func (d Decision) Categories() []guardrail.Category {
	seen := make(map[guardrail.Category]bool, len(d.Verdicts))
	var categories []guardrail.Category
	for _, v := range d.Verdicts {
		if seen[v.Category] {
			continue
		}
		seen[v.Category] = true
		categories = append(categories, v.Category)
	}
	return categories
}

// Coordinator runs the guardrail engine under a policy. Safe for concurrent
// use; the only mutable state is the stats counters and the sink, and both
// are synchronized.
type Coordinator struct {
	engine *guardrail.Engine
	policy Policy
	sink   Sink
	logger *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// NewCoordinator wires an engine, policy and audit sink together. A nil
// engine gets default rules; a nil sink discards audit records.
func NewCoordinator(engine *guardrail.Engine, policy Policy, sink Sink) *Coordinator {
	if engine == nil {
		engine = guardrail.NewEngine(nil)
	}
	if sink == nil {
		sink = NopSink()
	}
	if policy.OnViolation == "" {
		policy.OnViolation = PolicyRefuse
	}
	defaults := DefaultPolicy()
	if policy.InputRefusal == "" {
		policy.InputRefusal = defaults.InputRefusal
	}
	if policy.OutputRefusal == "" {
		policy.OutputRefusal = defaults.OutputRefusal
	}
	return &Coordinator{
		engine: engine,
		policy: policy,
		sink:   sink,
		logger: logging.WithComponent("safety"),
	}
}

// Check evaluates text for one direction and reduces the verdicts to a
// decision. It never fails: guardrail trouble can only make the decision
// stricter, and audit sink errors are logged, not returned.
func (c *Coordinator) Check(ctx context.Context, queryID, text string, direction guardrail.Direction) Decision {
	verdicts := c.engine.Evaluate(text, direction)
	verdicts = c.applyPolicy(verdicts)

	decision := Decision{
		Direction: direction,
		Action:    guardrail.ActionAllow,
		Verdicts:  verdicts,
		CheckedAt: time.Now(),
	}
	for _, v := range verdicts {
		if v.Action.Rank() > decision.Action.Rank() {
			decision.Action = v.Action
		}
	}
	if decision.Action == guardrail.ActionSanitize {
		decision.Sanitized = c.engine.Redact(text)
	}

	c.count(decision)
	c.audit(ctx, queryID, text, decision)

	if decision.Action != guardrail.ActionAllow {
		c.logger.Warn("safety violation",
			"direction", direction,
			"action", decision.Action,
			"categories", decision.Categories(),
			"query_id", queryID)
	} else {
		c.logger.Debug("safety check passed", "direction", direction, "query_id", queryID)
	}
	return decision
}

// applyPolicy escalates prohibited high-severity findings to BLOCK, then
// applies the sanitize downgrade when configured. Injection survives both
// steps as BLOCK.
func (c *Coordinator) applyPolicy(verdicts []guardrail.Verdict) []guardrail.Verdict {
	for i, v := range verdicts {
		if v.Severity == guardrail.SeverityHigh && c.prohibited(v.Category) {
			verdicts[i].Action = guardrail.ActionBlock
		}
	}
	if c.policy.OnViolation != PolicySanitize {
		return verdicts
	}
	for i, v := range verdicts {
		if v.Action == guardrail.ActionBlock && v.Category != guardrail.CategoryPromptInjection {
			verdicts[i].Action = guardrail.ActionSanitize
		}
	}
	return verdicts
}

func (c *Coordinator) prohibited(category guardrail.Category) bool {
	for _, p := range c.policy.ProhibitedCategories {
		if p == category {
			return true
		}
	}
	return false
}

// RefusalMessage is the user-facing text for a blocked direction.
func (c *Coordinator) RefusalMessage(direction guardrail.Direction) string {
	if direction == guardrail.DirectionOutput {
		return c.policy.OutputRefusal
	}
	return c.policy.InputRefusal
}

// Stats returns a snapshot of the counters.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Close releases the audit sink.
func (c *Coordinator) Close() error {
	return c.sink.Close()
}

func (c *Coordinator) count(decision Decision) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if decision.Direction == guardrail.DirectionOutput {
		c.stats.OutputChecks++
	} else {
		c.stats.InputChecks++
	}
	switch decision.Action {
	case guardrail.ActionBlock:
		c.stats.Violations++
		c.stats.Blocked++
	case guardrail.ActionSanitize:
		c.stats.Violations++
		c.stats.Sanitized++
	case guardrail.ActionWarn:
		c.stats.Violations++
		c.stats.Warned++
	}
}

func (c *Coordinator) audit(ctx context.Context, queryID, text string, decision Decision) {
	rec := Record{
		Timestamp:  decision.CheckedAt,
		QueryID:    queryID,
		Direction:  decision.Direction,
		Action:     decision.Action,
		Categories: decision.Categories(),
		Preview:    preview(text, 100),
	}
	if err := c.sink.Append(ctx, rec); err != nil {
		c.logger.Warn("audit append failed", "error", err)
	}
}

// preview returns at most n leading characters of text.
func preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
