// Package mcp adapts a tool served by an MCP server into the search backend
// contract. The remote tool is expected to take a query string and return
// JSON result records; anything it serves (institutional archives, internal
// corpora, bespoke crawlers) becomes evidence without code changes here.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sweetpotato0/scholarly/tool"
)

// Caller is the slice of the MCP client the searcher needs. Satisfied by
// *mcp.Client from the root mcp package; tests substitute stubs.
type Caller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)
}

// Config holds MCP searcher configuration.
type Config struct {
	ToolName string    // remote tool to invoke, defaults to "search"
	Kind     tool.Kind // what the results represent, defaults to web
	QueryKey string    // argument carrying the query, defaults to "query"
	LimitKey string    // argument carrying the limit, defaults to "limit"
}

// Searcher forwards queries to a remote MCP tool.
type Searcher struct {
	caller Caller
	config *Config
}

// New creates an MCP-backed searcher.
func New(caller Caller, config *Config) (*Searcher, error) {
	if caller == nil {
		return nil, fmt.Errorf("mcp searcher needs a client")
	}
	if config == nil {
		config = &Config{}
	}
	if config.ToolName == "" {
		config.ToolName = "search"
	}
	if config.Kind == "" {
		config.Kind = tool.KindWeb
	}
	if config.QueryKey == "" {
		config.QueryKey = "query"
	}
	if config.LimitKey == "" {
		config.LimitKey = "limit"
	}
	return &Searcher{caller: caller, config: config}, nil
}

// Name returns the searcher identifier, qualified by the remote tool name so
// several MCP tools can coexist in one registry.
func (s *Searcher) Name() string { return "mcp:" + s.config.ToolName }

// Kind reports the configured result kind.
func (s *Searcher) Kind() tool.Kind { return s.config.Kind }

// record mirrors the JSON shape MCP search tools are expected to serve.
// Unknown fields are ignored so richer servers still work.
type record struct {
	Title   string   `json:"title"`
	URL     string   `json:"url"`
	ID      string   `json:"id"`
	Snippet string   `json:"snippet"`
	Authors []string `json:"authors"`
	Year    int      `json:"year"`
	Venue   string   `json:"venue"`
}

// Search implements tool.Searcher.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]tool.Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty mcp search query")
	}
	if limit <= 0 {
		limit = 5
	}

	raw, err := s.caller.CallTool(ctx, s.config.ToolName, map[string]any{
		s.config.QueryKey: query,
		s.config.LimitKey: limit,
	})
	if err != nil {
		return nil, err
	}

	records, err := decodeRecords(raw)
	if err != nil {
		return nil, fmt.Errorf("mcp tool %s: %w", s.config.ToolName, err)
	}

	results := make([]tool.Result, 0, len(records))
	for _, r := range records {
		if r.Title == "" && r.URL == "" && r.ID == "" {
			continue
		}
		results = append(results, tool.Result{
			Title:   r.Title,
			URL:     r.URL,
			ID:      r.ID,
			Snippet: r.Snippet,
			Authors: r.Authors,
			Year:    r.Year,
			Venue:   r.Venue,
		})
		if len(results) == limit {
			break
		}
	}
	return results, nil
}

// decodeRecords accepts either a bare JSON array or an object wrapping the
// array under a "results" key.
func decodeRecords(raw string) ([]record, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var records []record
	if err := json.Unmarshal([]byte(raw), &records); err == nil {
		return records, nil
	}

	var wrapped struct {
		Results []record `json:"results"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapped); err == nil && wrapped.Results != nil {
		return wrapped.Results, nil
	}

	return nil, fmt.Errorf("response is not a JSON result list")
}
