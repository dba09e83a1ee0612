// Package semanticscholar implements paper search against the Semantic
// Scholar Graph API bulk search endpoint.
package semanticscholar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sweetpotato0/scholarly/errors"
	"github.com/sweetpotato0/scholarly/tool"
)

const defaultBaseURL = "https://api.semanticscholar.org/graph/v1/paper/search/bulk"

const searchFields = "paperId,title,authors,year,abstract,citationCount,url,venue,openAccessPdf"

// The API caps page size at 100 regardless of the requested limit.
const maxPageSize = 100

// Config holds Semantic Scholar searcher configuration. The API works
// without a key at a reduced rate limit; keyed access goes through the
// x-api-key header.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int           // extra attempts after a 429
	RetryDelay time.Duration // base wait between attempts
}

// Searcher queries the Semantic Scholar Graph API.
type Searcher struct {
	config *Config
	client *http.Client
}

// New creates a Semantic Scholar searcher.
func New(config *Config) *Searcher {
	if config == nil {
		config = &Config{}
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = time.Second
	}
	return &Searcher{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// Name returns the searcher identifier.
func (s *Searcher) Name() string { return "semanticscholar" }

// Kind reports that this searcher yields paper results.
func (s *Searcher) Kind() tool.Kind { return tool.KindPaper }

// Search implements tool.Searcher. Rate-limit responses are retried up to
// MaxRetries times with a linear backoff before giving up.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]tool.Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty paper search query")
	}
	if limit <= 0 {
		limit = 5
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	params := url.Values{
		"query":  {query},
		"fields": {searchFields},
		"limit":  {fmt.Sprintf("%d", limit)},
	}
	reqURL := s.config.BaseURL + "?" + params.Encode()

	var lastStatus int
	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * s.config.RetryDelay
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		if s.config.APIKey != "" {
			req.Header.Set("x-api-key", s.config.APIKey)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("Semantic Scholar request: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			lastStatus = resp.StatusCode
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("Semantic Scholar API returned HTTP %d", resp.StatusCode)
		}

		var sr searchResponse
		err = json.NewDecoder(resp.Body).Decode(&sr)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("parsing Semantic Scholar response: %w", err)
		}
		return convert(sr.Data), nil
	}

	return nil, fmt.Errorf("Semantic Scholar API rate limited (HTTP %d) after %d attempts: %w",
		lastStatus, s.config.MaxRetries+1, errors.ErrUnavailable)
}

func convert(papers []paper) []tool.Result {
	var results []tool.Result
	for _, p := range papers {
		if p.PaperID == "" && p.URL == "" {
			continue
		}
		r := tool.Result{
			ID:      p.PaperID,
			Title:   p.Title,
			URL:     p.URL,
			Snippet: p.Abstract,
			Year:    p.Year,
			Venue:   p.Venue,
		}
		for _, a := range p.Authors {
			if a.Name != "" {
				r.Authors = append(r.Authors, a.Name)
			}
		}
		if r.URL == "" && p.OpenAccessPDF.URL != "" {
			r.URL = p.OpenAccessPDF.URL
		}
		results = append(results, r)
	}
	return results
}

// Semantic Scholar API JSON structures.
type searchResponse struct {
	Total  int     `json:"total"`
	Offset int     `json:"offset"`
	Data   []paper `json:"data"`
}

type paper struct {
	PaperID       string   `json:"paperId"`
	Title         string   `json:"title"`
	Abstract      string   `json:"abstract"`
	Year          int      `json:"year"`
	CitationCount int      `json:"citationCount"`
	URL           string   `json:"url"`
	Venue         string   `json:"venue"`
	Authors       []author `json:"authors"`
	OpenAccessPDF openPDF  `json:"openAccessPdf"`
}

type author struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type openPDF struct {
	URL string `json:"url"`
}
