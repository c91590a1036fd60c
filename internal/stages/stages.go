package stages

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"repurpose/internal/artifacts"
	"repurpose/internal/logging"
	"repurpose/internal/pipeline"
	"repurpose/internal/services"
	"repurpose/internal/services/deepl"
	"repurpose/internal/services/llm"
	"repurpose/internal/services/pexels"
	"repurpose/internal/services/tavily"
	"repurpose/internal/textutil"
)

// Stage IDs.
const (
	LinkedIn   = "linkedin"
	Hooks      = "hooks"
	Twitter    = "twitter"
	Blog       = "blog"
	Newsletter = "newsletter"
	Visuals    = "visuals"
	Audio      = "audio"
	Research   = "research"
	BRoll      = "broll"
)

// TextGenerator produces chat completions, buffered or streamed.
type TextGenerator interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
	Stream(ctx context.Context, req llm.Request, onToken func(string)) (string, error)
}

// ImageSearcher finds stock photos for a keyword.
type ImageSearcher interface {
	Search(ctx context.Context, query string) ([]pexels.Photo, error)
}

// Translator renders text in another language.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (deepl.Translation, error)
}

// Synthesizer turns text into speech audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// WebSearcher runs web searches for research and fact checks.
type WebSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]tavily.Result, error)
}

// ArtifactStore persists binary stage outputs.
type ArtifactStore interface {
	PutBytes(key string, data []byte) (artifacts.Artifact, error)
}

// Settings tunes prompt budgets and stage behaviour.
type Settings struct {
	Model               string
	WriterModel         string
	BlogTranscriptChars int
	MaxTweets           int
	MaxFactChecks       int
	NarrationChars      int
	NarrationLanguage   string
	CarouselStyle       string
	CarouselTagline     string
	// ArtifactBaseURL prefixes artifact keys in payloads. Empty leaves bare keys.
	ArtifactBaseURL string
}

// Deps are the collaborators the stages call. Only LLM is mandatory; a stage
// whose provider is nil or unconfigured fails with a configuration error.
type Deps struct {
	LLM         TextGenerator
	Images      ImageSearcher
	Translator  Translator
	Synthesizer Synthesizer
	Research    WebSearcher
	Artifacts   ArtifactStore
	Prompts     *Catalog
	Settings    Settings
	Logger      *slog.Logger
	Clock       func() time.Time
}

const (
	writingTemperature       = 0.7
	analysisTemperature      = 0.3
	hookTranscriptChars      = 500
	researchTranscriptChars  = 3000
	thumbnailTranscriptChars = 2000
	trendResults             = 3
	verifyResults            = 2
	trendSnippetChars        = 200
)

var displayNames = map[string]string{
	pipeline.AnalysisStep: "Analysis",
	LinkedIn:              "LinkedIn",
	BRoll:                 "B-Roll",
}

var titleCaser = cases.Title(language.English)

// DisplayName is the human label for a stage ID.
func DisplayName(id string) string {
	if name, ok := displayNames[id]; ok {
		return name
	}
	return titleCaser.String(strings.ReplaceAll(id, "_", " "))
}

type builder struct {
	deps   Deps
	logger *slog.Logger
}

// Specs returns the derived stage table wired to deps.
func Specs(deps Deps) ([]pipeline.StageSpec, error) {
	if deps.LLM == nil {
		return nil, services.Wrap(services.ErrConfiguration, "stages", "build", "text generator is required", nil)
	}
	if deps.Prompts == nil {
		catalog, err := DefaultCatalog()
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "stages", "load prompts", "", err)
		}
		deps.Prompts = catalog
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	deps.Settings = deps.Settings.withDefaults()
	b := &builder{deps: deps, logger: logging.NewComponentLogger(deps.Logger, "stages")}

	return []pipeline.StageSpec{
		{ID: LinkedIn, Label: "Writing LinkedIn post...", Mode: pipeline.Foreground, Phase: pipeline.PhaseGeneration, Run: b.linkedin},
		{ID: Hooks, Label: "Drafting hook variants...", Mode: pipeline.Background, Phase: pipeline.PhaseGeneration, Run: b.hooks},
		{ID: Twitter, Label: "Drafting Twitter thread...", Mode: pipeline.Background, Phase: pipeline.PhaseGeneration, Run: b.twitter},
		{ID: Blog, Label: "Writing SEO blog post...", Mode: pipeline.Background, Phase: pipeline.PhaseGeneration, Run: b.blog},
		{ID: Newsletter, Label: "Building newsletter...", Mode: pipeline.Background, Phase: pipeline.PhaseGeneration, Run: b.newsletter},
		{ID: Visuals, Label: "Designing carousel and thumbnails...", Mode: pipeline.Background, Phase: pipeline.PhaseGeneration, Run: b.visuals},
		{ID: Audio, Label: "Translating and narrating the post...", Mode: pipeline.Background, Phase: pipeline.PhaseGeneration, After: LinkedIn, Run: b.audio},
		{ID: Research, Label: "Researching trends and fact-checking...", Mode: pipeline.Background, Phase: pipeline.PhaseFeatures, Run: b.research},
		{ID: BRoll, Label: "Finding b-roll images...", Mode: pipeline.Background, Phase: pipeline.PhaseFeatures, Run: b.broll},
	}, nil
}

func (s Settings) withDefaults() Settings {
	if s.BlogTranscriptChars <= 0 {
		s.BlogTranscriptChars = 3000
	}
	if s.MaxTweets <= 0 {
		s.MaxTweets = 5
	}
	if s.MaxFactChecks <= 0 {
		s.MaxFactChecks = 2
	}
	if s.NarrationChars <= 0 {
		s.NarrationChars = 300
	}
	if strings.TrimSpace(s.NarrationLanguage) == "" {
		s.NarrationLanguage = "ES"
	}
	if strings.TrimSpace(s.WriterModel) == "" {
		s.WriterModel = s.Model
	}
	s.ArtifactBaseURL = strings.TrimRight(strings.TrimSpace(s.ArtifactBaseURL), "/")
	return s
}

// promptData is the shared prompt view for a stage input.
func (b *builder) promptData(in pipeline.StageInput, transcriptLimit int) PromptData {
	transcript := in.Transcript
	if transcriptLimit > 0 {
		transcript = textutil.Truncate(transcript, transcriptLimit, "")
	}
	return PromptData{
		Tone:         in.Tone,
		BigIdea:      in.Analysis.BigIdea,
		StrongTakes:  in.Analysis.StrongTakes,
		DetectedTone: in.Analysis.Tone,
		Transcript:   transcript,
		MaxTweets:    b.deps.Settings.MaxTweets,
	}
}

// request renders systemName and userName into a chat request. An empty
// systemName uses the shared ghostwriter prompt.
func (b *builder) request(systemName, userName string, data PromptData) (llm.Request, error) {
	var (
		system string
		err    error
	)
	if systemName == "" {
		system, err = b.deps.Prompts.System(data)
	} else {
		system, err = b.deps.Prompts.Render(systemName, data)
	}
	if err != nil {
		return llm.Request{}, err
	}
	user, err := b.deps.Prompts.Render(userName, data)
	if err != nil {
		return llm.Request{}, err
	}
	return llm.Request{System: system, User: user, Model: b.deps.Settings.Model}, nil
}

// artifactURL maps a stored key to the URL clients fetch it from.
func (b *builder) artifactURL(key string) string {
	if b.deps.Settings.ArtifactBaseURL == "" {
		return key
	}
	return b.deps.Settings.ArtifactBaseURL + "/" + key
}

type configurable interface {
	Configured() bool
}

// ready reports whether a provider is present and, if it can tell, configured.
func ready(provider any) bool {
	if provider == nil {
		return false
	}
	if c, ok := provider.(configurable); ok {
		return c.Configured()
	}
	return true
}

func missingProvider(stage, provider string) error {
	return services.Wrap(services.ErrConfiguration, stage, "provider", fmt.Sprintf("%s is not configured", provider), nil)
}
