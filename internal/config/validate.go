package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var carouselStyles = []string{"cyberpunk", "minimalist", "corporate"}

// Validate ensures the configuration is usable. Missing provider credentials
// are not validation errors: the LLM key is checked when a job starts, and the
// enrichment keys only disable their stages.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateGeneration(); err != nil {
		return err
	}
	if err := c.validateProviders(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.ArtifactDir == "" {
		return errors.New("paths.artifact_dir must be set")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if !strings.HasPrefix(c.LLM.BaseURL, "http://") && !strings.HasPrefix(c.LLM.BaseURL, "https://") {
		return fmt.Errorf("llm.base_url must be an http(s) URL, got %q", c.LLM.BaseURL)
	}
	return nil
}

func (c *Config) validateGeneration() error {
	g := c.Generation
	if err := ensurePositive(map[string]int{
		"generation.max_transcript_chars":  g.MaxTranscriptChars,
		"generation.blog_transcript_chars": g.BlogTranscriptChars,
		"generation.max_tweets":            g.MaxTweets,
		"generation.narration_chars":       g.NarrationChars,
	}); err != nil {
		return err
	}
	if g.MaxFactChecks < 0 {
		return errors.New("generation.max_fact_checks must be zero or greater")
	}
	if !slices.Contains(carouselStyles, g.CarouselStyle) {
		return fmt.Errorf("generation.carousel_style must be one of %s", strings.Join(carouselStyles, ", "))
	}
	return nil
}

func (c *Config) validateProviders() error {
	if c.Transcription.TimeoutSeconds <= 0 {
		return errors.New("transcription.timeout_seconds must be positive")
	}
	if c.Pexels.PerPage <= 0 || c.Pexels.PerPage > 80 {
		return errors.New("pexels.per_page must be between 1 and 80")
	}
	if c.Tavily.MaxResults <= 0 {
		return errors.New("tavily.max_results must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
}

func ensurePositive(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
