package graph

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func buildLinear(t *testing.T) *Graph {
	t.Helper()

	g, err := NewBuilder().
		AddNode("start", func(ctx context.Context, state State) (State, error) {
			state["started"] = true
			return state, nil
		}).
		AddNode("work", func(ctx context.Context, state State) (State, error) {
			state["worked"] = true
			return state, nil
		}).
		AddNode("end", func(ctx context.Context, state State) (State, error) {
			state["finished"] = true
			return state, nil
		}).
		AddEdge("start", "work").
		AddEdge("work", "end").
		SetStart("start").
		SetEnd("end").
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return g
}

func TestExecuteLinear(t *testing.T) {
	g := buildLinear(t)

	state, err := g.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	for _, key := range []string{"started", "worked", "finished"} {
		if state[key] != true {
			t.Errorf("node for %q was not executed", key)
		}
	}
}

func TestExecuteCondition(t *testing.T) {
	for _, tc := range []struct {
		value int
		want  string
	}{
		{value: 5, want: "low"},
		{value: 15, want: "high"},
	} {
		g, err := NewBuilder().
			AddNode("start", func(ctx context.Context, state State) (State, error) {
				state["value"] = tc.value
				return state, nil
			}).
			AddConditionNode("decision", func(ctx context.Context, state State) (string, error) {
				if state["value"].(int) > 10 {
					return "high", nil
				}
				return "low", nil
			}, map[string]string{
				"high": "node_high",
				"low":  "node_low",
			}).
			AddNode("node_high", func(ctx context.Context, state State) (State, error) {
				state["taken"] = "high"
				return state, nil
			}).
			AddNode("node_low", func(ctx context.Context, state State) (State, error) {
				state["taken"] = "low"
				return state, nil
			}).
			AddNode("end", func(ctx context.Context, state State) (State, error) {
				return state, nil
			}).
			AddEdge("start", "decision").
			AddEdge("node_high", "end").
			AddEdge("node_low", "end").
			SetStart("start").
			SetEnd("end").
			Build()
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}

		state, err := g.Execute(context.Background(), nil)
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if state["taken"] != tc.want {
			t.Errorf("value %d took branch %v, want %s", tc.value, state["taken"], tc.want)
		}
	}
}

func TestExecuteCycleBounded(t *testing.T) {
	// loop -> check -> loop forever; the visit bound must trip.
	g, err := NewBuilder().
		AddNode("loop", func(ctx context.Context, state State) (State, error) {
			n, _ := state["rounds"].(int)
			state["rounds"] = n + 1
			return state, nil
		}).
		AddConditionNode("check", func(ctx context.Context, state State) (string, error) {
			return "again", nil
		}, map[string]string{"again": "loop", "done": "end"}).
		AddNode("end", func(ctx context.Context, state State) (State, error) {
			return state, nil
		}).
		AddEdge("loop", "check").
		SetStart("loop").
		SetEnd("end").
		SetMaxVisits(3).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	state, err := g.Execute(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error for unbounded cycle, got nil")
	}
	if !strings.Contains(err.Error(), "infinite loop detected") {
		t.Errorf("unexpected error: %v", err)
	}
	if state["rounds"] != 3 {
		t.Errorf("rounds = %v, want 3", state["rounds"])
	}
}

func TestExecuteCancelledBetweenNodes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	g, err := NewBuilder().
		AddNode("start", func(ctx context.Context, state State) (State, error) {
			state["started"] = true
			cancel()
			return state, nil
		}).
		AddNode("end", func(ctx context.Context, state State) (State, error) {
			state["finished"] = true
			return state, nil
		}).
		AddEdge("start", "end").
		SetStart("start").
		SetEnd("end").
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	state, err := g.Execute(ctx, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if state["started"] != true {
		t.Errorf("partial state lost on cancellation")
	}
	if _, ran := state["finished"]; ran {
		t.Errorf("end node ran after cancellation")
	}
}

func TestExecuteNodeError(t *testing.T) {
	g, err := NewBuilder().
		AddNode("start", func(ctx context.Context, state State) (State, error) {
			state["started"] = true
			return state, nil
		}).
		AddNode("boom", func(ctx context.Context, state State) (State, error) {
			return state, errors.New("backend down")
		}).
		AddNode("end", func(ctx context.Context, state State) (State, error) {
			return state, nil
		}).
		AddEdge("start", "boom").
		AddEdge("boom", "end").
		SetStart("start").
		SetEnd("end").
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	state, err := g.Execute(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "node boom") {
		t.Fatalf("expected node boom error, got %v", err)
	}
	if state["started"] != true {
		t.Errorf("partial state lost on node error")
	}
}

func TestBuildValidation(t *testing.T) {
	noop := func(ctx context.Context, state State) (State, error) { return state, nil }

	for _, tc := range []struct {
		name    string
		builder *Builder
		wantErr string
	}{
		{
			name:    "missing start",
			builder: NewBuilder().AddNode("end", noop).SetEnd("end"),
			wantErr: "start node not set",
		},
		{
			name:    "missing end",
			builder: NewBuilder().AddNode("start", noop).SetStart("start"),
			wantErr: "end node not set",
		},
		{
			name: "dangling edge",
			builder: NewBuilder().
				AddNode("start", noop).
				AddNode("end", noop).
				SetStart("start").
				SetEnd("end"),
			wantErr: "no outgoing edge",
		},
		{
			name: "route to unknown node",
			builder: NewBuilder().
				AddNode("start", noop).
				AddConditionNode("fork", func(ctx context.Context, state State) (string, error) {
					return "a", nil
				}, map[string]string{"a": "ghost"}).
				AddNode("end", noop).
				AddEdge("start", "fork").
				SetStart("start").
				SetEnd("end"),
			wantErr: "unknown node ghost",
		},
	} {
		if _, err := tc.builder.Build(); err == nil || !strings.Contains(err.Error(), tc.wantErr) {
			t.Errorf("%s: got error %v, want containing %q", tc.name, err, tc.wantErr)
		}
	}
}

func TestAddNodeDuplicatePanics(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected function to panic, but it did not")
		}
		if r != "node dup already exists" {
			t.Errorf("unexpected panic value: %v", r)
		}
	}()

	NewBuilder().
		AddNode("dup", func(ctx context.Context, state State) (State, error) { return state, nil }).
		AddNode("dup", func(ctx context.Context, state State) (State, error) { return state, nil })
}
