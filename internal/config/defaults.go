package config

const (
	defaultConfigPath          = "~/.config/repurpose/config.toml"
	defaultDataDir             = "~/.local/share/repurpose"
	defaultLogDir              = "~/.local/share/repurpose/logs"
	defaultArtifactDir         = "~/.local/share/repurpose/artifacts"
	defaultAPIBind             = "127.0.0.1:7510"
	defaultLLMBaseURL          = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel            = "openai/gpt-4o-mini"
	defaultLLMWriterModel      = "openai/gpt-4o"
	defaultLLMTitle            = "Repurpose"
	defaultLLMTimeoutSeconds   = 90
	defaultMaxTranscriptChars  = 5000
	defaultBlogTranscriptChars = 3000
	defaultToneProfile         = "professional"
	defaultMaxTweets           = 5
	defaultMaxFactChecks       = 2
	defaultNarrationChars      = 300
	defaultNarrationLanguage   = "ES"
	defaultCarouselStyle       = "cyberpunk"
	defaultTranscribeCommand   = "uvx"
	defaultTranscribeModel     = "base"
	defaultDownloaderCommand   = "yt-dlp"
	defaultTranscribeLanguage  = "en"
	defaultTranscribeTimeout   = 1800
	defaultPexelsBaseURL       = "https://api.pexels.com/v1"
	defaultPexelsPerPage       = 1
	defaultPexelsOrientation   = "landscape"
	defaultDeepLBaseURL        = "https://api-free.deepl.com/v2"
	defaultElevenLabsBaseURL   = "https://api.elevenlabs.io/v1"
	defaultElevenLabsVoiceID   = "21m00Tcm4TlvDq8ikWAM"
	defaultElevenLabsModelID   = "eleven_flash_v2_5"
	defaultTavilyBaseURL       = "https://api.tavily.com"
	defaultTavilyMaxResults    = 3
	defaultNotifyTimeout       = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:     defaultDataDir,
			LogDir:      defaultLogDir,
			ArtifactDir: defaultArtifactDir,
			APIBind:     defaultAPIBind,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			WriterModel:    defaultLLMWriterModel,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Generation: Generation{
			MaxTranscriptChars:  defaultMaxTranscriptChars,
			BlogTranscriptChars: defaultBlogTranscriptChars,
			ToneProfile:         defaultToneProfile,
			ForegroundStages:    []string{"linkedin"},
			MaxTweets:           defaultMaxTweets,
			MaxFactChecks:       defaultMaxFactChecks,
			NarrationChars:      defaultNarrationChars,
			NarrationLanguage:   defaultNarrationLanguage,
			CarouselStyle:       defaultCarouselStyle,
		},
		Transcription: Transcription{
			Command:        defaultTranscribeCommand,
			Downloader:     defaultDownloaderCommand,
			Model:          defaultTranscribeModel,
			Language:       defaultTranscribeLanguage,
			TimeoutSeconds: defaultTranscribeTimeout,
		},
		Pexels: Pexels{
			BaseURL:     defaultPexelsBaseURL,
			PerPage:     defaultPexelsPerPage,
			Orientation: defaultPexelsOrientation,
		},
		DeepL: DeepL{BaseURL: defaultDeepLBaseURL},
		ElevenLabs: ElevenLabs{
			BaseURL: defaultElevenLabsBaseURL,
			VoiceID: defaultElevenLabsVoiceID,
			ModelID: defaultElevenLabsModelID,
		},
		Tavily: Tavily{
			BaseURL:    defaultTavilyBaseURL,
			MaxResults: defaultTavilyMaxResults,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			JobCompleted:   true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
