// Package tool defines the search adapter contract the researcher fans out
// to, and a registry that keeps adapters in registration order so evidence
// collection stays deterministic.
package tool

import (
	"context"
	"fmt"
	"sync"

	"github.com/sweetpotato0/scholarly/errors"
)

// Kind tells what a searcher returns.
type Kind string

const (
	KindWeb   Kind = "web"
	KindPaper Kind = "paper"
)

// Result is one ranked hit from a search backend, already normalized to the
// fields the evidence pool and citation formatter care about.
type Result struct {
	Title   string   `json:"title"`
	URL     string   `json:"url,omitempty"`
	ID      string   `json:"id,omitempty"`
	Snippet string   `json:"snippet,omitempty"`
	Authors []string `json:"authors,omitempty"`
	Year    int      `json:"year,omitempty"`
	Venue   string   `json:"venue,omitempty"`
}

// Identifier is the dedup key part specific to this result: the paper id when
// present, otherwise the URL.
func (r Result) Identifier() string {
	if r.ID != "" {
		return r.ID
	}
	return r.URL
}

// Searcher is a search backend. Implementations respect the context deadline
// and return at most limit results.
type Searcher interface {
	Name() string
	Kind() Kind
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// Registry manages the configured searchers.
// All operations are thread-safe using RWMutex protection.
type Registry struct {
	mu       sync.RWMutex // Protects searchers
	byName   map[string]Searcher
	searched []Searcher
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Searcher),
	}
}

// Register adds a searcher. Names are unique.
func (r *Registry) Register(s Searcher) error {
	if s == nil || s.Name() == "" {
		return fmt.Errorf("searcher name cannot be empty: %w", errors.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[s.Name()]; exists {
		return fmt.Errorf("searcher %s: %w", s.Name(), errors.ErrAlreadyExists)
	}
	r.byName[s.Name()] = s
	r.searched = append(r.searched, s)
	return nil
}

// Get retrieves a searcher by name.
func (r *Registry) Get(name string) (Searcher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("searcher %s: %w", name, errors.ErrNotFound)
	}
	return s, nil
}

// List returns all searchers in registration order.
func (r *Registry) List() []Searcher {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Searcher, len(r.searched))
	copy(out, r.searched)
	return out
}

// ByKind returns the searchers of one kind, in registration order.
func (r *Registry) ByKind(kind Kind) []Searcher {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Searcher
	for _, s := range r.searched {
		if s.Kind() == kind {
			out = append(out, s)
		}
	}
	return out
}

// Len reports how many searchers are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.searched)
}
