// Package duckduckgo implements web search against the DuckDuckGo HTML
// endpoint. The endpoint serves plain markup meant for no-JS browsers, which
// goquery parses without an API key.
package duckduckgo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sweetpotato0/scholarly/tool"
)

const defaultBaseURL = "https://html.duckduckgo.com/html/"

// Browsers get served the full site; anything without a UA gets a 403.
const defaultUserAgent = "Mozilla/5.0 (compatible; scholarly/1.0; +https://github.com/sweetpotato0/scholarly)"

// Config holds DuckDuckGo searcher configuration.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Searcher queries the DuckDuckGo HTML endpoint.
type Searcher struct {
	config *Config
	client *http.Client
}

// New creates a DuckDuckGo searcher.
func New(config *Config) *Searcher {
	if config == nil {
		config = &Config{}
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.UserAgent == "" {
		config.UserAgent = defaultUserAgent
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &Searcher{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// Name returns the searcher identifier.
func (s *Searcher) Name() string { return "duckduckgo" }

// Kind reports that this searcher yields web results.
func (s *Searcher) Kind() tool.Kind { return tool.KindWeb }

// Search implements tool.Searcher.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]tool.Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty web search query")
	}
	if limit <= 0 {
		limit = 5
	}

	reqURL := s.config.BaseURL + "?" + url.Values{"q": {query}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.config.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("DuckDuckGo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("DuckDuckGo returned HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing DuckDuckGo response: %w", err)
	}

	var results []tool.Result
	doc.Find(".result").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if sel.HasClass("result--ad") {
			return true
		}
		anchor := sel.Find(".result__a").First()
		title := strings.TrimSpace(anchor.Text())
		href, _ := anchor.Attr("href")
		link := unwrapRedirect(href)
		if title == "" || link == "" {
			return true
		}
		results = append(results, tool.Result{
			Title:   title,
			URL:     link,
			Snippet: strings.TrimSpace(sel.Find(".result__snippet").First().Text()),
		})
		return len(results) < limit
	})

	return results, nil
}

// unwrapRedirect resolves DuckDuckGo's /l/?uddg=<target> indirection back to
// the destination URL. Non-redirect links pass through unchanged.
func unwrapRedirect(href string) string {
	if href == "" {
		return ""
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	if parsed.Scheme == "" && strings.HasPrefix(href, "//") {
		parsed.Scheme = "https"
		return parsed.String()
	}
	return href
}
