package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	envLLMKey        = "OPENROUTER_API_KEY"
	envLLMKeyAlt     = "REPURPOSE_LLM_API_KEY"
	envPexelsKey     = "PEXELS_API_KEY"
	envDeepLKey      = "DEEPL_API_KEY"
	envElevenLabsKey = "ELEVENLABS_API_KEY"
	envTavilyKey     = "TAVILY_API_KEY"
	envNtfyTopic     = "NTFY_TOPIC"
	envAPIToken      = "REPURPOSE_API_TOKEN"
)

// loadDotEnv exports variables from path without overriding values already
// present in the process environment. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeGeneration()
	c.normalizeProviders()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.ArtifactDir, err = expandPath(c.Paths.ArtifactDir); err != nil {
		return fmt.Errorf("paths.artifact_dir: %w", err)
	}
	if c.Generation.PromptsFile != "" {
		if c.Generation.PromptsFile, err = expandPath(c.Generation.PromptsFile); err != nil {
			return fmt.Errorf("generation.prompts_file: %w", err)
		}
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Paths.PublicBaseURL), "/")
	c.Paths.APIToken = firstNonEmpty(strings.TrimSpace(c.Paths.APIToken), os.Getenv(envAPIToken))
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = firstNonEmpty(c.LLM.APIKey, os.Getenv(envLLMKeyAlt), os.Getenv(envLLMKey))
	c.LLM.BaseURL = firstNonEmpty(c.LLM.BaseURL, defaultLLMBaseURL)
	c.LLM.Model = firstNonEmpty(c.LLM.Model, defaultLLMModel)
	c.LLM.WriterModel = firstNonEmpty(c.LLM.WriterModel, c.LLM.Model)
	c.LLM.Title = firstNonEmpty(c.LLM.Title, defaultLLMTitle)
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeGeneration() {
	g := &c.Generation
	g.ToneProfile = firstNonEmpty(g.ToneProfile, defaultToneProfile)
	g.NarrationLanguage = strings.ToUpper(firstNonEmpty(g.NarrationLanguage, defaultNarrationLanguage))
	g.CarouselStyle = strings.ToLower(firstNonEmpty(g.CarouselStyle, defaultCarouselStyle))
	g.ForegroundStages = normalizeList(g.ForegroundStages)
	g.DefaultPlatforms = normalizeList(g.DefaultPlatforms)
	g.PromptsFile = strings.TrimSpace(g.PromptsFile)
}

func (c *Config) normalizeProviders() {
	c.Transcription.Command = firstNonEmpty(c.Transcription.Command, defaultTranscribeCommand)
	c.Transcription.Model = firstNonEmpty(c.Transcription.Model, defaultTranscribeModel)
	c.Transcription.Downloader = firstNonEmpty(c.Transcription.Downloader, defaultDownloaderCommand)

	c.Pexels.APIKey = firstNonEmpty(c.Pexels.APIKey, os.Getenv(envPexelsKey))
	c.Pexels.BaseURL = strings.TrimRight(firstNonEmpty(c.Pexels.BaseURL, defaultPexelsBaseURL), "/")
	c.Pexels.Orientation = firstNonEmpty(c.Pexels.Orientation, defaultPexelsOrientation)

	c.DeepL.APIKey = firstNonEmpty(c.DeepL.APIKey, os.Getenv(envDeepLKey))
	c.DeepL.BaseURL = strings.TrimRight(firstNonEmpty(c.DeepL.BaseURL, defaultDeepLBaseURL), "/")

	c.ElevenLabs.APIKey = firstNonEmpty(c.ElevenLabs.APIKey, os.Getenv(envElevenLabsKey))
	c.ElevenLabs.BaseURL = strings.TrimRight(firstNonEmpty(c.ElevenLabs.BaseURL, defaultElevenLabsBaseURL), "/")
	c.ElevenLabs.VoiceID = firstNonEmpty(c.ElevenLabs.VoiceID, defaultElevenLabsVoiceID)
	c.ElevenLabs.ModelID = firstNonEmpty(c.ElevenLabs.ModelID, defaultElevenLabsModelID)

	c.Tavily.APIKey = firstNonEmpty(c.Tavily.APIKey, os.Getenv(envTavilyKey))
	c.Tavily.BaseURL = strings.TrimRight(firstNonEmpty(c.Tavily.BaseURL, defaultTavilyBaseURL), "/")
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = firstNonEmpty(c.Notifications.NtfyTopic, os.Getenv(envNtfyTopic))
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(firstNonEmpty(c.Logging.Format, defaultLogFormat))
	c.Logging.Level = strings.ToLower(firstNonEmpty(c.Logging.Level, defaultLogLevel))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func normalizeList(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
