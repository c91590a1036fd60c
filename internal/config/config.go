package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir       string `toml:"data_dir"`
	LogDir        string `toml:"log_dir"`
	ArtifactDir   string `toml:"artifact_dir"`
	APIBind       string `toml:"api_bind"`
	PublicBaseURL string `toml:"public_base_url"`
	APIToken      string `toml:"api_token"`
}

// LLM contains the chat completion connection settings.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	WriterModel    string `toml:"writer_model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Generation controls how the analysis and derived stages build their prompts
// and which stages stream in the foreground.
type Generation struct {
	MaxTranscriptChars  int      `toml:"max_transcript_chars"`
	BlogTranscriptChars int      `toml:"blog_transcript_chars"`
	ToneProfile         string   `toml:"tone_profile"`
	ForegroundStages    []string `toml:"foreground_stages"`
	DefaultPlatforms    []string `toml:"default_platforms"`
	MaxTweets           int      `toml:"max_tweets"`
	MaxFactChecks       int      `toml:"max_fact_checks"`
	NarrationChars      int      `toml:"narration_chars"`
	NarrationLanguage   string   `toml:"narration_language"`
	CarouselStyle       string   `toml:"carousel_style"`
	// PromptsFile replaces the embedded prompt catalog with a YAML file.
	PromptsFile         string   `toml:"prompts_file"`
}

// Transcription configures the WhisperX command used for media sources.
type Transcription struct {
	Command        string `toml:"command"`
	Downloader     string `toml:"downloader"`
	Model          string `toml:"model"`
	Language       string `toml:"language"`
	CUDAEnabled    bool   `toml:"cuda_enabled"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Pexels configures the stock image search used for b-roll suggestions.
type Pexels struct {
	APIKey      string `toml:"api_key"`
	BaseURL     string `toml:"base_url"`
	PerPage     int    `toml:"per_page"`
	Orientation string `toml:"orientation"`
}

// DeepL configures narration translation.
type DeepL struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// ElevenLabs configures narration speech synthesis.
type ElevenLabs struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	VoiceID string `toml:"voice_id"`
	ModelID string `toml:"model_id"`
}

// Tavily configures web research for trend context and fact checks.
type Tavily struct {
	APIKey     string `toml:"api_key"`
	BaseURL    string `toml:"base_url"`
	MaxResults int    `toml:"max_results"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	JobCompleted   bool   `toml:"job_completed"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for repurpose.
//
// Configuration sections by subsystem:
//   - Paths: data, log, and artifact directories plus the API bind address
//   - LLM: OpenRouter-compatible chat completion settings
//   - Generation: prompt budgets, tone, and foreground stage policy
//   - Transcription: WhisperX command for media sources
//   - Pexels, DeepL, ElevenLabs, Tavily: enrichment providers
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	LLM           LLM           `toml:"llm"`
	Generation    Generation    `toml:"generation"`
	Transcription Transcription `toml:"transcription"`
	Pexels        Pexels        `toml:"pexels"`
	DeepL         DeepL         `toml:"deepl"`
	ElevenLabs    ElevenLabs    `toml:"elevenlabs"`
	Tavily        Tavily        `toml:"tavily"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. A .env file in the
// working directory is read first so API keys can live outside config.toml.
// The returned config has all path fields expanded.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, "", false, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("repurpose.toml")
	if err != nil {
		return "", false, err
	}

	for _, candidate := range []string{defaultPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the data, log, and artifact directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.ArtifactDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// JobStorePath returns the sqlite database holding persisted job records.
func (c *Config) JobStorePath() string {
	return filepath.Join(c.Paths.DataDir, "jobs.db")
}

// LockPath returns the lock file guarding a single API server per data dir.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "repurpose.lock")
}

// PIDPath returns the file recording the running API server's process id.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.DataDir, "repurpose.pid")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Credential names a secret the pipeline depends on and whether it is set.
type Credential struct {
	Name     string
	EnvVar   string
	Present  bool
	Required bool
}

// Credentials reports every provider secret. Only the LLM key is required for
// a job to start; the rest gate individual stages.
func (c *Config) Credentials() []Credential {
	present := func(v string) bool { return strings.TrimSpace(v) != "" }
	return []Credential{
		{Name: "llm.api_key", EnvVar: envLLMKey, Present: present(c.LLM.APIKey), Required: true},
		{Name: "pexels.api_key", EnvVar: envPexelsKey, Present: present(c.Pexels.APIKey)},
		{Name: "deepl.api_key", EnvVar: envDeepLKey, Present: present(c.DeepL.APIKey)},
		{Name: "elevenlabs.api_key", EnvVar: envElevenLabsKey, Present: present(c.ElevenLabs.APIKey)},
		{Name: "tavily.api_key", EnvVar: envTavilyKey, Present: present(c.Tavily.APIKey)},
	}
}
