package mcp

import (
	"context"
	"fmt"
	"testing"

	"github.com/sweetpotato0/scholarly/tool"
)

type stubCaller struct {
	reply    string
	err      error
	lastTool string
	lastArgs map[string]any
}

func (s *stubCaller) CallTool(_ context.Context, name string, args map[string]any) (string, error) {
	s.lastTool = name
	s.lastArgs = args
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func TestSearchDecodesBareArray(t *testing.T) {
	caller := &stubCaller{reply: `[
		{"title": "Participatory Design at Work", "url": "https://example.org/pd", "snippet": "Workshop report.", "year": 2019, "venue": "CSCW"},
		{"title": "", "url": "", "id": ""},
		{"title": "Archive entry", "id": "arch-42", "authors": ["A. Author"]}
	]`}
	s, err := New(caller, &Config{ToolName: "archive_search", Kind: tool.KindPaper})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	results, err := s.Search(context.Background(), "participatory design", 5)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if caller.lastTool != "archive_search" {
		t.Errorf("called tool %q", caller.lastTool)
	}
	if caller.lastArgs["query"] != "participatory design" {
		t.Errorf("query arg = %v", caller.lastArgs["query"])
	}
	if caller.lastArgs["limit"] != 5 {
		t.Errorf("limit arg = %v", caller.lastArgs["limit"])
	}

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (empty record dropped)", len(results))
	}
	if results[0].Title != "Participatory Design at Work" || results[0].Venue != "CSCW" {
		t.Errorf("first result mismatch: %+v", results[0])
	}
	if results[1].Identifier() != "arch-42" {
		t.Errorf("identifier = %q, want arch-42", results[1].Identifier())
	}
}

func TestSearchDecodesWrappedResults(t *testing.T) {
	caller := &stubCaller{reply: `{"results": [{"title": "Wrapped hit", "url": "https://example.org/w"}], "took_ms": 12}`}
	s, _ := New(caller, nil)

	results, err := s.Search(context.Background(), "hci", 5)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 1 || results[0].Title != "Wrapped hit" {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestSearchHonorsLimit(t *testing.T) {
	caller := &stubCaller{reply: `[
		{"title": "one", "url": "https://example.org/1"},
		{"title": "two", "url": "https://example.org/2"},
		{"title": "three", "url": "https://example.org/3"}
	]`}
	s, _ := New(caller, nil)

	results, err := s.Search(context.Background(), "hci", 2)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
}

func TestSearchRejectsNonJSON(t *testing.T) {
	caller := &stubCaller{reply: "plain prose, not a result list"}
	s, _ := New(caller, nil)
	if _, err := s.Search(context.Background(), "hci", 5); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestSearchPropagatesToolError(t *testing.T) {
	caller := &stubCaller{err: fmt.Errorf("server unavailable")}
	s, _ := New(caller, nil)
	if _, err := s.Search(context.Background(), "hci", 5); err == nil {
		t.Fatal("expected propagated error")
	}
}

func TestDefaultsAndMetadata(t *testing.T) {
	s, err := New(&stubCaller{reply: "[]"}, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if s.Name() != "mcp:search" {
		t.Errorf("Name() = %q", s.Name())
	}
	if s.Kind() != tool.KindWeb {
		t.Errorf("Kind() = %q", s.Kind())
	}
	if _, err := New(nil, nil); err == nil {
		t.Error("expected error for nil caller")
	}
}
