package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/thetealover/aichat/internal/log"
)

// searchMaxResponseSize limits SearXNG response bodies.
const searchMaxResponseSize = 4 << 20

// SearchInput is the web search tool input.
type SearchInput struct {
	Query string `json:"query" jsonschema:"The search query"`
}

// SearchProvider exposes a single web_search tool backed by a SearXNG
// instance's JSON API.
type SearchProvider struct {
	baseURL    string
	maxResults int
	httpClient *http.Client
	logger     log.Logger
}

// SearchOption configures a SearchProvider.
type SearchOption func(*SearchProvider)

// WithSearchHTTPClient replaces the default HTTP client. Used by tests.
func WithSearchHTTPClient(hc *http.Client) SearchOption {
	return func(p *SearchProvider) { p.httpClient = hc }
}

// NewSearchProvider creates a provider for the SearXNG instance at baseURL.
func NewSearchProvider(baseURL string, maxResults int, logger log.Logger, opts ...SearchOption) *SearchProvider {
	if logger == nil {
		logger = log.NewNop()
	}
	if maxResults <= 0 {
		maxResults = 5
	}

	p := &SearchProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name identifies the provider in logs.
func (p *SearchProvider) Name() string {
	return "search"
}

// Tools returns the web_search tool.
func (p *SearchProvider) Tools(_ context.Context) ([]Tool, error) {
	schema, err := jsonschema.For[SearchInput](nil)
	if err != nil {
		return nil, fmt.Errorf("schema for web_search: %w", err)
	}

	return []Tool{{
		Name:        "web_search",
		Description: "Search the web for current information. Returns titles, URLs, and snippets of the top results.",
		InputSchema: schema,
		Execute:     p.search,
	}}, nil
}

// searxngResponse is the subset of the SearXNG JSON API we consume.
type searxngResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func (p *SearchProvider) search(ctx context.Context, input map[string]any) (string, error) {
	query, _ := input["query"].(string)
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("search query is empty")
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("building search request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Error("web search request failed", "query", query, "error", err)
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, searchMaxResponseSize))
	if err != nil {
		return "", fmt.Errorf("reading search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	var parsed searxngResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decoding search response: %w", err)
	}

	if len(parsed.Results) == 0 {
		return "No results found.", nil
	}

	var b strings.Builder
	for i, r := range parsed.Results {
		if i >= p.maxResults {
			break
		}
		fmt.Fprintf(&b, "%d. %s\n   %s\n   %s\n", i+1, r.Title, r.URL, r.Content)
	}
	return b.String(), nil
}
