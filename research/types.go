package research

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sweetpotato0/scholarly/cite"
	"github.com/sweetpotato0/scholarly/safety"
	"github.com/sweetpotato0/scholarly/tool"
)

// Phase is where a workflow currently stands. The five working phases run in
// a loop bounded by the revision limit; DONE, BLOCKED and FAILED are terminal.
type Phase string

const (
	PhasePlanning    Phase = "PLANNING"
	PhaseResearching Phase = "RESEARCHING"
	PhaseWriting     Phase = "WRITING"
	PhaseCritiquing  Phase = "CRITIQUING"
	PhaseRevising    Phase = "REVISING"
	PhaseDone        Phase = "DONE"
	PhaseBlocked     Phase = "BLOCKED"
	PhaseFailed      Phase = "FAILED"
)

// Terminal reports whether no further transitions may happen.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseBlocked || p == PhaseFailed
}

// Role names the agent that produced a transcript message.
type Role string

const (
	RolePlanner    Role = "planner"
	RoleResearcher Role = "researcher"
	RoleWriter     Role = "writer"
	RoleCritic     Role = "critic"
)

// Verdict is the critic's structured judgement of a draft.
type Verdict string

const (
	VerdictApprove Verdict = "approve"
	VerdictRevise  Verdict = "revise"
)

// Query is one accepted research question. Immutable once created.
type Query struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"received_at"`
}

// querySeq keeps ids unique when runs start in the same instant.
var querySeq atomic.Int64

// NewQuery stamps a query with an id and arrival time.
func NewQuery(text string) Query {
	now := time.Now()
	return Query{
		ID:         fmt.Sprintf("q-%s-%d", now.Format("20060102150405"), querySeq.Add(1)),
		Text:       text,
		ReceivedAt: now,
	}
}

// Plan is the planner's output: an ordered list of research subtasks.
type Plan struct {
	Strategy string     `json:"strategy,omitempty"`
	Steps    []PlanStep `json:"steps"`
}

// PlanStep is one subtask, optionally carrying ready-made search queries.
type PlanStep struct {
	ID      string   `json:"id"`
	Goal    string   `json:"goal"`
	Queries []string `json:"queries,omitempty"`
}

// Evidence is one discovered source in the shared pool. A failed tool call
// also lands here as a degraded entry with Error set, so the writer can see
// that a search was attempted without the failure aborting the turn.
type Evidence struct {
	Kind       tool.Kind `json:"kind"`
	Identifier string    `json:"identifier"`
	Title      string    `json:"title"`
	URL        string    `json:"url,omitempty"`
	Snippet    string    `json:"snippet,omitempty"`
	Authors    []string  `json:"authors,omitempty"`
	Year       int       `json:"year,omitempty"`
	Venue      string    `json:"venue,omitempty"`
	Source     string    `json:"source,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Citable reports whether this entry can back a citation.
func (e Evidence) Citable() bool { return e.Error == "" }

// CitationSource adapts the entry for the citation formatter.
func (e Evidence) CitationSource() cite.Source {
	return cite.Source{
		Title:   e.Title,
		URL:     e.URL,
		Authors: e.Authors,
		Year:    e.Year,
		Venue:   e.Venue,
	}
}

// Message is one transcript entry. Only the orchestrator appends; sequence
// numbers are dense and strictly increasing per query.
type Message struct {
	Seq      int            `json:"seq"`
	Role     Role           `json:"role"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	SentAt   time.Time      `json:"sent_at"`
}

// Review is the critic's feedback on one draft.
type Review struct {
	Verdict Verdict  `json:"verdict"`
	Issues  []string `json:"issues,omitempty"`
	Notes   string   `json:"notes,omitempty"`
}

// Timings records wall-clock spent per phase. Revisited phases accumulate.
type Timings struct {
	PerPhase map[Phase]time.Duration `json:"per_phase,omitempty"`
	Total    time.Duration           `json:"total"`
}

// Result is the immutable package handed back to callers.
type Result struct {
	Query      Query             `json:"query"`
	Answer     string            `json:"answer"`
	Citations  []string          `json:"citations,omitempty"`
	Evidence   []Evidence        `json:"evidence,omitempty"`
	Transcript []Message         `json:"transcript,omitempty"`
	Decisions  []safety.Decision `json:"safety_decisions,omitempty"`
	Phase      Phase             `json:"phase"`
	Phases     []Phase           `json:"phases"`
	Revisions  int               `json:"revisions"`
	Notices    []string          `json:"notices,omitempty"`
	Timings    Timings           `json:"timings"`
}

// Blocked reports whether a guardrail stopped this run.
func (r *Result) Blocked() bool { return r.Phase == PhaseBlocked }

// CitableEvidence returns the pool entries that back citations, in pool
// order. Index i corresponds to citation number i+1.
func CitableEvidence(pool []Evidence) []Evidence {
	var out []Evidence
	for _, e := range pool {
		if e.Citable() {
			out = append(out, e)
		}
	}
	return out
}

// RenderCitations formats the citable pool entries in the given style.
func RenderCitations(pool []Evidence, style cite.Style) []string {
	citable := CitableEvidence(pool)
	sources := make([]cite.Source, len(citable))
	for i, e := range citable {
		sources[i] = e.CitationSource()
	}
	return cite.FormatList(sources, style)
}

func degradedEvidence(kind tool.Kind, source, query string, err error) Evidence {
	return Evidence{
		Kind:       kind,
		Identifier: fmt.Sprintf("error:%s:%s", source, query),
		Title:      fmt.Sprintf("search failed: %s", source),
		Snippet:    err.Error(),
		Source:     source,
		Error:      err.Error(),
	}
}
