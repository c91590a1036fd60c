package stages

import (
	"context"
	"strings"

	"repurpose/internal/pipeline"
	"repurpose/internal/services"
	"repurpose/internal/services/llm"
)

// Analyzer runs the root analysis prompt through a TextGenerator.
type Analyzer struct {
	llm     TextGenerator
	prompts *Catalog
	model   string
}

// NewAnalyzer builds the analysis runner. A nil catalog uses the embedded one.
func NewAnalyzer(gen TextGenerator, prompts *Catalog, model string) (*Analyzer, error) {
	if gen == nil {
		return nil, services.Wrap(services.ErrConfiguration, pipeline.AnalysisStep, "build", "text generator is required", nil)
	}
	if prompts == nil {
		catalog, err := DefaultCatalog()
		if err != nil {
			return nil, err
		}
		prompts = catalog
	}
	return &Analyzer{llm: gen, prompts: prompts, model: strings.TrimSpace(model)}, nil
}

// Analyze streams the analysis completion and returns the raw model text.
func (a *Analyzer) Analyze(ctx context.Context, transcript, tone string, tokens func(string)) (string, error) {
	data := PromptData{Tone: tone, Transcript: transcript}
	system, err := a.prompts.System(data)
	if err != nil {
		return "", err
	}
	user, err := a.prompts.Render(promptAnalysis, data)
	if err != nil {
		return "", err
	}
	req := llm.Request{System: system, User: user, Model: a.model, Temperature: analysisTemperature}
	return a.llm.Stream(ctx, req, tokens)
}
