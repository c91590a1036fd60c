// Package pexels searches the Pexels stock photo API.
package pexels

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"repurpose/internal/services"
)

const (
	defaultBaseURL     = "https://api.pexels.com/v1"
	defaultPerPage     = 1
	defaultOrientation = "landscape"
	defaultTimeout     = 30 * time.Second
)

// Config captures the Pexels credentials and search defaults.
type Config struct {
	APIKey      string
	BaseURL     string
	PerPage     int
	Orientation string
}

// Photo is the subset of a Pexels photo the b-roll stage needs.
type Photo struct {
	ID           int64  `json:"id"`
	URL          string `json:"url"`
	Photographer string `json:"photographer"`
	Alt          string `json:"alt"`
	Src          struct {
		Original string `json:"original"`
		Large    string `json:"large"`
		Medium   string `json:"medium"`
	} `json:"src"`
}

type searchResponse struct {
	Photos []Photo `json:"photos"`
}

// Client calls the Pexels search endpoint.
type Client struct {
	cfg    Config
	client services.HTTPDoer
}

// NewClient constructs a Pexels client. A nil doer uses a client with a 30s timeout.
func NewClient(cfg Config, doer services.HTTPDoer) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = defaultPerPage
	}
	if strings.TrimSpace(cfg.Orientation) == "" {
		cfg.Orientation = defaultOrientation
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

// Search returns photos matching query using the configured page size and orientation.
func (c *Client) Search(ctx context.Context, query string) ([]Photo, error) {
	if !c.Configured() {
		return nil, services.Wrap(services.ErrConfiguration, "pexels", "search", "api key not configured", nil)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.Wrap(services.ErrValidation, "pexels", "search", "empty query", nil)
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", strconv.Itoa(c.cfg.PerPage))
	params.Set("orientation", c.cfg.Orientation)
	endpoint := fmt.Sprintf("%s/search?%s", c.cfg.BaseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "pexels", "build request", "", err)
	}
	req.Header.Set("Authorization", c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "pexels", "search", "", err)
	}
	defer resp.Body.Close()
	if err := services.CheckResponse(resp, "pexels", "search"); err != nil {
		return nil, err
	}
	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "pexels", "decode response", "", err)
	}
	return decoded.Photos, nil
}
