// Package tavily queries the Tavily web search API.
package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"repurpose/internal/services"
)

const (
	defaultBaseURL    = "https://api.tavily.com"
	defaultMaxResults = 3
	defaultTimeout    = 30 * time.Second
)

// Config captures the Tavily credentials.
type Config struct {
	APIKey     string
	BaseURL    string
	MaxResults int
}

// Result is one search hit.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type searchRequest struct {
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type searchResponse struct {
	Query   string   `json:"query"`
	Answer  string   `json:"answer"`
	Results []Result `json:"results"`
}

// Client calls the Tavily search endpoint.
type Client struct {
	cfg    Config
	client services.HTTPDoer
}

// NewClient constructs a Tavily client. A nil doer uses a client with a 30s timeout.
func NewClient(cfg Config, doer services.HTTPDoer) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = defaultMaxResults
	}
	if doer == nil {
		doer = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{cfg: cfg, client: doer}
}

// Configured reports whether an API key is available.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.APIKey != ""
}

// Search runs query and returns at most maxResults hits. Zero uses the configured limit.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if !c.Configured() {
		return nil, services.Wrap(services.ErrConfiguration, "tavily", "search", "api key not configured", nil)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.Wrap(services.ErrValidation, "tavily", "search", "empty query", nil)
	}
	if maxResults <= 0 {
		maxResults = c.cfg.MaxResults
	}
	body, err := json.Marshal(searchRequest{Query: query, MaxResults: maxResults, SearchDepth: "basic"})
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "tavily", "encode request", "", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "tavily", "build request", "", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "tavily", "search", "", err)
	}
	defer resp.Body.Close()
	if err := services.CheckResponse(resp, "tavily", "search"); err != nil {
		return nil, err
	}
	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "tavily", "decode response", "", err)
	}
	results := decoded.Results
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}
