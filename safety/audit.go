package safety

import (
	"context"
	"time"

	"github.com/sweetpotato0/scholarly/guardrail"
)

// Record is one audit entry, written per coordinator check. Preview holds at
// most the first 100 characters of the checked text; the full text is never
// persisted.
type Record struct {
	Timestamp  time.Time            `json:"timestamp"`
	QueryID    string               `json:"query_id,omitempty"`
	Direction  guardrail.Direction  `json:"direction"`
	Action     guardrail.Action     `json:"action"`
	Categories []guardrail.Category `json:"categories,omitempty"`
	Preview    string               `json:"preview"`
}

// Sink receives audit records. Implementations must make Append safe for
// concurrent use; each call persists one whole record or nothing.
type Sink interface {
	Append(ctx context.Context, rec Record) error
	Close() error
}

type noopSink struct{}

func (noopSink) Append(context.Context, Record) error { return nil }
func (noopSink) Close() error                         { return nil }

// NopSink returns a sink that discards every record.
func NopSink() Sink { return noopSink{} }
