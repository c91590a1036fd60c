package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"repurpose/internal/artifacts"
	"repurpose/internal/config"
	"repurpose/internal/deps"
	"repurpose/internal/httpapi"
	"repurpose/internal/jobstore"
	"repurpose/internal/logging"
	"repurpose/internal/notifications"
	"repurpose/internal/pipeline"
	"repurpose/internal/services/deepl"
	"repurpose/internal/services/elevenlabs"
	"repurpose/internal/services/llm"
	"repurpose/internal/services/pexels"
	"repurpose/internal/services/tavily"
	"repurpose/internal/services/whisperx"
	"repurpose/internal/stages"
)

// Options adjusts how a Runtime is assembled.
type Options struct {
	Logger *slog.Logger
	// SkipStore runs jobs without persisting them.
	SkipStore bool
	// ForegroundStages overrides generation.foreground_stages when non-nil.
	ForegroundStages []string
}

// Runtime holds the collaborators shared by the CLI and the daemon.
type Runtime struct {
	Config       *config.Config
	Logger       *slog.Logger
	LLM          *llm.Client
	Orchestrator *pipeline.Orchestrator
	Store        *jobstore.Store
	Artifacts    *artifacts.LocalFS
	Notifier     notifications.Service
}

// New wires provider clients, the stage table, and the orchestrator from cfg.
func New(cfg *config.Config, opts Options) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap requires config")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	blobs, err := artifacts.NewLocalFS(cfg.Paths.ArtifactDir)
	if err != nil {
		return nil, err
	}
	prompts, err := loadPrompts(cfg.Generation.PromptsFile)
	if err != nil {
		return nil, err
	}

	client := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})

	specs, err := stages.Specs(stages.Deps{
		LLM: client,
		Images: pexels.NewClient(pexels.Config{
			APIKey:      cfg.Pexels.APIKey,
			BaseURL:     cfg.Pexels.BaseURL,
			PerPage:     cfg.Pexels.PerPage,
			Orientation: cfg.Pexels.Orientation,
		}, nil),
		Translator: deepl.NewClient(deepl.Config{APIKey: cfg.DeepL.APIKey, BaseURL: cfg.DeepL.BaseURL}, nil),
		Synthesizer: elevenlabs.NewClient(elevenlabs.Config{
			APIKey:  cfg.ElevenLabs.APIKey,
			BaseURL: cfg.ElevenLabs.BaseURL,
			VoiceID: cfg.ElevenLabs.VoiceID,
			ModelID: cfg.ElevenLabs.ModelID,
		}, nil),
		Research: tavily.NewClient(tavily.Config{
			APIKey:     cfg.Tavily.APIKey,
			BaseURL:    cfg.Tavily.BaseURL,
			MaxResults: cfg.Tavily.MaxResults,
		}, nil),
		Artifacts: blobs,
		Prompts:   prompts,
		Settings:  settingsFromConfig(cfg),
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	analyzer, err := stages.NewAnalyzer(client, prompts, cfg.LLM.Model)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		Config:    cfg,
		Logger:    logger,
		LLM:       client,
		Artifacts: blobs,
		Notifier:  notifications.NewService(cfg),
	}

	pipelineOpts := pipeline.Options{
		Analyzer:           analyzer,
		Transcriber:        newTranscriber(cfg),
		Logger:             logger,
		ForegroundStages:   cfg.Generation.ForegroundStages,
		Credentials:        credentials(cfg),
		MaxTranscriptChars: cfg.Generation.MaxTranscriptChars,
		DefaultTone:        cfg.Generation.ToneProfile,
	}
	if opts.ForegroundStages != nil {
		pipelineOpts.ForegroundStages = opts.ForegroundStages
	}
	if !opts.SkipStore {
		store, err := jobstore.Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("open job store: %w", err)
		}
		rt.Store = store
		pipelineOpts.Store = store
	}

	rt.Orchestrator, err = pipeline.New(specs, pipelineOpts)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	return rt, nil
}

// Server builds the HTTP API over this runtime.
func (rt *Runtime) Server(logPath string, hub *logging.StreamHub) *httpapi.Server {
	srv := &httpapi.Server{
		Runner:           rt.Orchestrator,
		Artifacts:        rt.Artifacts,
		Notifier:         rt.Notifier,
		Logger:           rt.Logger,
		Token:            rt.Config.Paths.APIToken,
		LogPath:          logPath,
		LogHub:           hub,
		DefaultPlatforms: rt.Config.Generation.DefaultPlatforms,
	}
	if rt.Store != nil {
		srv.Jobs = rt.Store
	}
	return srv
}

// Close releases the job store.
func (rt *Runtime) Close() error {
	if rt == nil || rt.Store == nil {
		return nil
	}
	return rt.Store.Close()
}

func settingsFromConfig(cfg *config.Config) stages.Settings {
	settings := stages.Settings{
		Model:               cfg.LLM.Model,
		WriterModel:         cfg.LLM.WriterModel,
		BlogTranscriptChars: cfg.Generation.BlogTranscriptChars,
		MaxTweets:           cfg.Generation.MaxTweets,
		MaxFactChecks:       cfg.Generation.MaxFactChecks,
		NarrationChars:      cfg.Generation.NarrationChars,
		NarrationLanguage:   cfg.Generation.NarrationLanguage,
		CarouselStyle:       cfg.Generation.CarouselStyle,
	}
	if base := strings.TrimSpace(cfg.Paths.PublicBaseURL); base != "" {
		settings.ArtifactBaseURL = base + "/v1/artifacts"
	}
	return settings
}

func credentials(cfg *config.Config) []pipeline.Credential {
	configured := cfg.Credentials()
	out := make([]pipeline.Credential, 0, len(configured))
	for _, cred := range configured {
		out = append(out, pipeline.Credential{Name: cred.Name, Present: cred.Present, Required: cred.Required})
	}
	return out
}

func newTranscriber(cfg *config.Config) *whisperx.Service {
	ffmpeg := deps.ResolveFFmpeg().CommandOr(whisperx.FFmpegCommand)
	return whisperx.NewService(whisperx.Config{
		Command:     cfg.Transcription.Command,
		Downloader:  cfg.Transcription.Downloader,
		Model:       cfg.Transcription.Model,
		Language:    cfg.Transcription.Language,
		CUDAEnabled: cfg.Transcription.CUDAEnabled,
		Timeout:     time.Duration(cfg.Transcription.TimeoutSeconds) * time.Second,
		WorkDir:     cfg.Paths.DataDir,
	}, ffmpeg)
}

func loadPrompts(path string) (*stages.Catalog, error) {
	if path == "" {
		return stages.DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts file: %w", err)
	}
	return stages.ParseCatalog(data)
}
