// Package deepl translates text with the DeepL API.
package deepl

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
	defaultBaseURL = "https://api-free.deepl.com/v2"
	defaultTimeout = 30 * time.Second
)

// Config captures the DeepL credentials.
type Config struct {
	APIKey  string
	BaseURL string
}

// Translation is one translated text.
type Translation struct {
	Text                   string `json:"text"`
	DetectedSourceLanguage string `json:"detected_source_language"`
}

type translateRequest struct {
	Text       []string `json:"text"`
	TargetLang string   `json:"target_lang"`
}

type translateResponse struct {
	Translations []Translation `json:"translations"`
}

// Client calls the DeepL translate endpoint.
type Client struct {
	cfg    Config
	client services.HTTPDoer
}

// NewClient constructs a DeepL client. A nil doer uses a client with a 30s timeout.
func NewClient(cfg Config, doer services.HTTPDoer) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
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

// Translate renders text in targetLang (a DeepL code such as "ES").
func (c *Client) Translate(ctx context.Context, text, targetLang string) (Translation, error) {
	if !c.Configured() {
		return Translation{}, services.Wrap(services.ErrConfiguration, "deepl", "translate", "api key not configured", nil)
	}
	text = strings.TrimSpace(text)
	targetLang = strings.ToUpper(strings.TrimSpace(targetLang))
	if text == "" || targetLang == "" {
		return Translation{}, services.Wrap(services.ErrValidation, "deepl", "translate", "text and target language required", nil)
	}
	body, err := json.Marshal(translateRequest{Text: []string{text}, TargetLang: targetLang})
	if err != nil {
		return Translation{}, services.Wrap(services.ErrValidation, "deepl", "encode request", "", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return Translation{}, services.Wrap(services.ErrValidation, "deepl", "build request", "", err)
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Translation{}, services.Wrap(services.ErrTransient, "deepl", "translate", "", err)
	}
	defer resp.Body.Close()
	if err := services.CheckResponse(resp, "deepl", "translate"); err != nil {
		return Translation{}, err
	}
	var decoded translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Translation{}, services.Wrap(services.ErrExternalTool, "deepl", "decode response", "", err)
	}
	if len(decoded.Translations) == 0 {
		return Translation{}, services.Wrap(services.ErrExternalTool, "deepl", "translate", "no translations returned", nil)
	}
	return decoded.Translations[0], nil
}
