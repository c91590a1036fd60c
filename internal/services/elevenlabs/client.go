// Package elevenlabs synthesizes speech with the ElevenLabs API.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"repurpose/internal/services"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io/v1"
	defaultVoiceID = "21m00Tcm4TlvDq8ikWAM"
	defaultModelID = "eleven_flash_v2_5"
	defaultTimeout = 2 * time.Minute
	maxAudioBytes  = 64 << 20
)

// Config captures the ElevenLabs credentials and voice selection.
type Config struct {
	APIKey  string
	BaseURL string
	VoiceID string
	ModelID string
}

type synthesizeRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// Client calls the text-to-speech endpoint.
type Client struct {
	cfg    Config
	client services.HTTPDoer
}

// NewClient constructs an ElevenLabs client. A nil doer uses a client with a 2m timeout.
func NewClient(cfg Config, doer services.HTTPDoer) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(cfg.VoiceID) == "" {
		cfg.VoiceID = defaultVoiceID
	}
	if strings.TrimSpace(cfg.ModelID) == "" {
		cfg.ModelID = defaultModelID
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

// Synthesize returns MP3 audio for text.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if !c.Configured() {
		return nil, services.Wrap(services.ErrConfiguration, "elevenlabs", "synthesize", "api key not configured", nil)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, services.Wrap(services.ErrValidation, "elevenlabs", "synthesize", "empty text", nil)
	}
	body, err := json.Marshal(synthesizeRequest{Text: text, ModelID: c.cfg.ModelID})
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "elevenlabs", "encode request", "", err)
	}
	endpoint := c.cfg.BaseURL + "/text-to-speech/" + url.PathEscape(c.cfg.VoiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "elevenlabs", "build request", "", err)
	}
	req.Header.Set("xi-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "elevenlabs", "synthesize", "", err)
	}
	defer resp.Body.Close()
	if err := services.CheckResponse(resp, "elevenlabs", "synthesize"); err != nil {
		return nil, err
	}
	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "elevenlabs", "read audio", "", err)
	}
	if len(audio) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "elevenlabs", "synthesize", "empty audio response", nil)
	}
	return audio, nil
}
