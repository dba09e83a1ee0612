package research

import (
	"fmt"
	"time"

	"github.com/sweetpotato0/scholarly/cite"
	"github.com/sweetpotato0/scholarly/graph"
	"github.com/sweetpotato0/scholarly/safety"
)

const stateKey = "__research_workflow"

// legalPhase lists the allowed transitions. Everything may fail; only the
// critique phase can finish, block on the output check, or loop back.
var legalPhase = map[Phase][]Phase{
	PhasePlanning:    {PhaseResearching, PhaseFailed},
	PhaseResearching: {PhaseWriting, PhaseFailed},
	PhaseWriting:     {PhaseCritiquing, PhaseFailed},
	PhaseCritiquing:  {PhaseRevising, PhaseDone, PhaseBlocked, PhaseFailed},
	PhaseRevising:    {PhaseWriting, PhaseFailed},
	PhaseDone:        nil,
	PhaseBlocked:     nil,
	PhaseFailed:      nil,
}

// workflowState is the single mutable record threaded through the graph.
// Nodes run sequentially, so no lock is needed.
type workflowState struct {
	query        Query
	phase        Phase
	phases       []Phase
	revisions    int
	maxRevisions int

	plan   *Plan
	draft  string
	review *Review
	answer string

	transcript []Message
	evidence   []Evidence
	seen       map[string]struct{}
	decisions  []safety.Decision
	notices    []string
	failure    error

	startedAt  time.Time
	phaseStart time.Time
	timings    map[Phase]time.Duration
}

func newWorkflowState(query Query, maxRevisions int) *workflowState {
	now := time.Now()
	return &workflowState{
		query:        query,
		phase:        PhasePlanning,
		phases:       []Phase{PhasePlanning},
		maxRevisions: maxRevisions,
		seen:         make(map[string]struct{}),
		startedAt:    now,
		phaseStart:   now,
		timings:      make(map[Phase]time.Duration),
	}
}

// setPhase moves the workflow along a legal edge, folding the elapsed time
// into the phase being left. Illegal edges indicate a wiring bug.
func (s *workflowState) setPhase(to Phase) error {
	for _, next := range legalPhase[s.phase] {
		if next == to {
			now := time.Now()
			s.timings[s.phase] += now.Sub(s.phaseStart)
			s.phase = to
			s.phases = append(s.phases, to)
			s.phaseStart = now
			return nil
		}
	}
	return fmt.Errorf("illegal phase transition %s -> %s", s.phase, to)
}

// appendMessage adds one transcript entry. Terminal phases accept no more
// messages.
func (s *workflowState) appendMessage(role Role, content string, metadata map[string]any) error {
	if s.phase.Terminal() {
		return fmt.Errorf("cannot append message in terminal phase %s", s.phase)
	}
	s.transcript = append(s.transcript, Message{
		Seq:      len(s.transcript),
		Role:     role,
		Content:  content,
		Metadata: metadata,
		SentAt:   time.Now(),
	})
	return nil
}

// addEvidence inserts an entry unless an equal (kind, identifier) pair is
// already pooled. The first insertion wins and keeps its position.
func (s *workflowState) addEvidence(ev Evidence) bool {
	key := string(ev.Kind) + "\x00" + ev.Identifier
	if _, dup := s.seen[key]; dup {
		return false
	}
	s.seen[key] = struct{}{}
	s.evidence = append(s.evidence, ev)
	return true
}

func (s *workflowState) addNotice(format string, args ...any) {
	s.notices = append(s.notices, fmt.Sprintf(format, args...))
}

// fail forces the workflow into FAILED from any non-terminal phase.
func (s *workflowState) fail(err error) {
	s.failure = err
	if s.phase.Terminal() {
		return
	}
	now := time.Now()
	s.timings[s.phase] += now.Sub(s.phaseStart)
	s.phase = PhaseFailed
	s.phases = append(s.phases, PhaseFailed)
	s.phaseStart = now
}

// result freezes the state into the caller-facing record.
func (s *workflowState) result(style cite.Style) *Result {
	s.timings[s.phase] += time.Since(s.phaseStart)
	s.phaseStart = time.Now()

	perPhase := make(map[Phase]time.Duration, len(s.timings))
	for phase, d := range s.timings {
		perPhase[phase] = d
	}
	res := &Result{
		Query:      s.query,
		Answer:     s.answer,
		Evidence:   append([]Evidence(nil), s.evidence...),
		Transcript: append([]Message(nil), s.transcript...),
		Decisions:  append([]safety.Decision(nil), s.decisions...),
		Phase:      s.phase,
		Phases:     append([]Phase(nil), s.phases...),
		Revisions:  s.revisions,
		Notices:    append([]string(nil), s.notices...),
		Timings: Timings{
			PerPhase: perPhase,
			Total:    time.Since(s.startedAt),
		},
	}
	res.Citations = RenderCitations(s.evidence, style)
	return res
}

func getState(state graph.State) (*workflowState, error) {
	raw, ok := state[stateKey]
	if !ok {
		return nil, fmt.Errorf("workflow state missing from graph state")
	}
	st, ok := raw.(*workflowState)
	if !ok {
		return nil, fmt.Errorf("unexpected workflow state type %T", raw)
	}
	return st, nil
}
