package research

import (
	"strings"
	"testing"

	"github.com/sweetpotato0/scholarly/tool"
)

func TestSetPhaseRejectsIllegalEdges(t *testing.T) {
	cases := []struct {
		name string
		walk []Phase
		fail Phase
	}{
		{name: "skip research", walk: nil, fail: PhaseWriting},
		{name: "done from planning", walk: nil, fail: PhaseDone},
		{name: "backwards", walk: []Phase{PhaseResearching}, fail: PhasePlanning},
		{name: "revise without critique", walk: []Phase{PhaseResearching, PhaseWriting}, fail: PhaseRevising},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := newWorkflowState(NewQuery("q"), 2)
			for _, phase := range tc.walk {
				if err := st.setPhase(phase); err != nil {
					t.Fatalf("setup transition to %s: %v", phase, err)
				}
			}
			err := st.setPhase(tc.fail)
			if err == nil {
				t.Fatalf("transition %s -> %s was allowed", st.phase, tc.fail)
			}
			if !strings.Contains(err.Error(), "illegal phase transition") {
				t.Errorf("error = %v", err)
			}
		})
	}
}

func TestTerminalPhaseFreezesTranscript(t *testing.T) {
	st := newWorkflowState(NewQuery("q"), 2)
	for _, phase := range []Phase{PhaseResearching, PhaseWriting, PhaseCritiquing, PhaseDone} {
		if err := st.setPhase(phase); err != nil {
			t.Fatalf("transition to %s: %v", phase, err)
		}
	}
	if err := st.appendMessage(RoleWriter, "late", nil); err == nil {
		t.Fatal("appendMessage succeeded in a terminal phase")
	}
	if err := st.setPhase(PhaseFailed); err == nil {
		t.Fatal("terminal phase allowed another transition")
	}
}

func TestAddEvidenceDedup(t *testing.T) {
	st := newWorkflowState(NewQuery("q"), 2)
	first := Evidence{Kind: tool.KindWeb, Identifier: "https://example.org/a", Title: "first"}
	dup := Evidence{Kind: tool.KindWeb, Identifier: "https://example.org/a", Title: "second"}
	otherKind := Evidence{Kind: tool.KindPaper, Identifier: "https://example.org/a", Title: "paper"}

	if !st.addEvidence(first) {
		t.Fatal("first insertion rejected")
	}
	if st.addEvidence(dup) {
		t.Error("duplicate (kind, identifier) accepted")
	}
	if !st.addEvidence(otherKind) {
		t.Error("same identifier under a different kind rejected")
	}
	if len(st.evidence) != 2 {
		t.Fatalf("pool = %d entries, want 2", len(st.evidence))
	}
	if st.evidence[0].Title != "first" {
		t.Errorf("pool[0].Title = %q, want the first insertion kept", st.evidence[0].Title)
	}
}

func TestFailFromAnyPhase(t *testing.T) {
	st := newWorkflowState(NewQuery("q"), 2)
	if err := st.setPhase(PhaseResearching); err != nil {
		t.Fatalf("setPhase: %v", err)
	}
	st.fail(nil)
	if st.phase != PhaseFailed {
		t.Fatalf("phase = %s, want %s", st.phase, PhaseFailed)
	}
	before := len(st.phases)
	st.fail(nil)
	if len(st.phases) != before {
		t.Error("fail on a terminal state appended another phase")
	}
}
