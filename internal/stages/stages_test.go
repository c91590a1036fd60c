package stages_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repurpose/internal/artifacts"
	"repurpose/internal/newsletter"
	"repurpose/internal/pipeline"
	"repurpose/internal/services"
	"repurpose/internal/services/llm"
	"repurpose/internal/stages"
)

func TestSpecsRequiresTextGenerator(t *testing.T) {
	_, err := stages.Specs(stages.Deps{})
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrConfiguration)
}

func TestSpecsTableShape(t *testing.T) {
	specs, err := stages.Specs(stages.Deps{LLM: scriptedLLM()})
	require.NoError(t, err)

	ids := make([]string, 0, len(specs))
	for _, s := range specs {
		ids = append(ids, s.ID)
		require.NotNil(t, s.Run, s.ID)
		assert.NotEmpty(t, s.Label, s.ID)
	}
	assert.Equal(t, []string{"linkedin", "hooks", "twitter", "blog", "newsletter", "visuals", "audio", "research", "broll"}, ids)

	byID := map[string]pipeline.StageSpec{}
	for _, s := range specs {
		byID[s.ID] = s
	}
	assert.Equal(t, pipeline.Foreground, byID["linkedin"].Mode)
	assert.Equal(t, pipeline.Background, byID["blog"].Mode)
	assert.Equal(t, "linkedin", byID["audio"].After)
	assert.Equal(t, pipeline.PhaseFeatures, byID["research"].Phase)
	assert.Equal(t, pipeline.PhaseFeatures, byID["broll"].Phase)
	assert.Equal(t, pipeline.PhaseGeneration, byID["visuals"].Phase)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "LinkedIn", stages.DisplayName("linkedin"))
	assert.Equal(t, "B-Roll", stages.DisplayName("broll"))
	assert.Equal(t, "Analysis", stages.DisplayName("analysis"))
	assert.Equal(t, "Newsletter", stages.DisplayName("newsletter"))
}

func TestDefaultCatalogFrameworks(t *testing.T) {
	catalog, err := stages.DefaultCatalog()
	require.NoError(t, err)

	frameworks := catalog.HookFrameworks()
	require.Len(t, frameworks, 5)
	names := make([]string, 0, len(frameworks))
	for _, fw := range frameworks {
		names = append(names, fw.Name)
	}
	assert.Equal(t, []string{"contrarian", "story", "listicle", "question", "stat"}, names)
	assert.Equal(t, "Start with 'Why everyone is wrong about...' or 'The uncomfortable truth about...'", frameworks[0].Description())
}

func TestParseCatalogRejectsMissingPrompt(t *testing.T) {
	_, err := stages.ParseCatalog([]byte("system: hi\nprompts:\n  linkedin: x\nhook_frameworks:\n  - name: a\n    instruction: b\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prompt missing")
}

func TestCatalogRenderMissingField(t *testing.T) {
	catalog, err := stages.DefaultCatalog()
	require.NoError(t, err)
	_, err = catalog.Render("nope", stages.PromptData{})
	assert.Error(t, err)

	out, err := catalog.Render("linkedin", stages.PromptData{
		BigIdea:      "Ship small",
		StrongTakes:  []string{"a", "b"},
		DetectedTone: "calm",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Strong Takes: a; b")
	assert.Contains(t, out, "Tone: calm")
}

func TestParseThread(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		limit int
		want  []string
	}{
		{"separators", "one\n---\ntwo\n---\nthree", 5, []string{"one", "two", "three"}},
		{"labels stripped", "Tweet 1: Hook\n---\ntweet 2) Body", 5, []string{"Hook", "Body"}},
		{"label on own line", "Tweet 1\nHook line\nsecond line", 5, []string{"Hook line\nsecond line"}},
		{"empty entries dropped", "one\n---\n\n---\n   \n---\ntwo", 5, []string{"one", "two"}},
		{"limit", "a\n---\nb\n---\nc", 2, []string{"a", "b"}},
		{"inline dashes kept", "a -- b --- c", 5, []string{"a -- b --- c"}},
		{"tweeting word kept", "Tweeting daily works", 5, []string{"Tweeting daily works"}},
		{"crlf", "one\r\n---\r\ntwo", 5, []string{"one", "two"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, stages.ParseThread(tc.raw, tc.limit))
		})
	}
}

func TestParseClaims(t *testing.T) {
	claims, err := stages.ParseClaims(`{"claims": [" a ", "", "b"]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, claims)

	claims, err = stages.ParseClaims(`{"zeta": ["z"], "facts": ["f1", "f2"], "count": 2}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"f1", "f2"}, claims)

	claims, err = stages.ParseClaims(`{"count": 2}`)
	require.NoError(t, err)
	assert.Empty(t, claims)

	_, err = stages.ParseClaims("no json here")
	assert.ErrorIs(t, err, services.ErrExternalTool)
}

func TestLinkedInStreamsTokens(t *testing.T) {
	gen := scriptedLLM()
	spec := specByID(stages.Deps{LLM: gen, Settings: stages.Settings{Model: "m1"}}, stages.LinkedIn)

	var tokens []string
	out, err := spec.Run(context.Background(), testInput(), func(tok string) { tokens = append(tokens, tok) })
	require.NoError(t, err)
	assert.Equal(t, linkedinPost, out)
	assert.Equal(t, linkedinPost, strings.Join(tokens, ""))

	reqs := gen.find("Write a LinkedIn post")
	require.Len(t, reqs, 1)
	assert.Equal(t, "m1", reqs[0].Model)
	assert.Contains(t, reqs[0].System, "The client's tone profile is: bold")
	assert.Contains(t, reqs[0].User, "Big Idea: Automation frees small teams")
}

func TestLinkedInEmptyPostFails(t *testing.T) {
	gen := &fakeLLM{handle: func(llm.Request) (string, error) { return "  ", nil }}
	spec := specByID(stages.Deps{LLM: gen}, stages.LinkedIn)
	_, err := spec.Run(context.Background(), testInput(), noTokens)
	assert.ErrorIs(t, err, services.ErrExternalTool)
}

func TestTwitterThread(t *testing.T) {
	spec := specByID(stages.Deps{LLM: scriptedLLM()}, stages.Twitter)
	out, err := spec.Run(context.Background(), testInput(), noTokens)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hook tweet", "Second point", "Third point", "Fourth point", "Fifth point"}, out)
}

func TestBlogUsesWriterModelAndScoresSEO(t *testing.T) {
	gen := scriptedLLM()
	deps := stages.Deps{LLM: gen, Settings: stages.Settings{Model: "fast", WriterModel: "writer", BlogTranscriptChars: 40}}
	out, err := specByID(deps, stages.Blog).Run(context.Background(), testInput(), noTokens)
	require.NoError(t, err)

	payload, ok := out.(stages.BlogPayload)
	require.True(t, ok)
	assert.Equal(t, blogMarkdown, payload.Markdown)
	assert.True(t, payload.SEO.Details.HasH1)
	assert.Equal(t, 4, payload.SEO.Details.H2Count)
	assert.Positive(t, payload.SEO.Score)

	reqs := gen.find("SEO-optimized blog post")
	require.Len(t, reqs, 1)
	assert.Equal(t, "writer", reqs[0].Model)
	assert.NotContains(t, reqs[0].User, "More detail. More detail. More detail. More detail.")
}

func TestHooksOnePerFramework(t *testing.T) {
	gen := scriptedLLM()
	out, err := specByID(stages.Deps{LLM: gen}, stages.Hooks).Run(context.Background(), testInput(), noTokens)
	require.NoError(t, err)

	hooks, ok := out.([]stages.Hook)
	require.True(t, ok)
	require.Len(t, hooks, 5)
	assert.Equal(t, "contrarian", hooks[0].Framework)
	assert.Equal(t, "Hook for contrarian", hooks[0].Hook)
	assert.NotEmpty(t, hooks[0].Description)
	assert.Equal(t, "stat", hooks[4].Framework)

	for _, req := range gen.find("Write ONE opening hook") {
		assert.InDelta(t, 0.7, req.Temperature, 1e-9)
	}
}

func TestHooksPartialFailure(t *testing.T) {
	base := scriptedLLM()
	gen := &fakeLLM{handle: func(req llm.Request) (string, error) {
		if strings.Contains(req.User, "Framework: story") || strings.Contains(req.User, "Framework: stat") {
			return "", errors.New("rate limited")
		}
		return base.handle(req)
	}}
	out, err := specByID(stages.Deps{LLM: gen}, stages.Hooks).Run(context.Background(), testInput(), noTokens)
	require.NoError(t, err)
	hooks := out.([]stages.Hook)
	require.Len(t, hooks, 3)
	assert.Equal(t, []string{"contrarian", "listicle", "question"}, []string{hooks[0].Framework, hooks[1].Framework, hooks[2].Framework})
}

func TestHooksAllFail(t *testing.T) {
	gen := &fakeLLM{handle: func(llm.Request) (string, error) { return "", errors.New("down") }}
	_, err := specByID(stages.Deps{LLM: gen}, stages.Hooks).Run(context.Background(), testInput(), noTokens)
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrExternalTool)
}

func TestNewsletterStage(t *testing.T) {
	deps := stages.Deps{LLM: scriptedLLM(), Clock: func() time.Time { return fixedNow }}
	out, err := specByID(deps, stages.Newsletter).Run(context.Background(), testInput(), noTokens)
	require.NoError(t, err)

	edition, ok := out.(newsletter.Edition)
	require.True(t, ok)
	assert.Equal(t, "🎬 Automation frees small teams", edition.Subject)
	assert.Contains(t, edition.HTML, "img.youtube.com/vi/dQw4w9WgXcQ/maxresdefault.jpg")
	assert.Contains(t, edition.Text, "Meetings waste creative energy")

	in := testInput()
	in.Source = ""
	out, err = specByID(deps, stages.Newsletter).Run(context.Background(), in, noTokens)
	require.NoError(t, err)
	// html/template escapes '+' inside attribute values.
	placeholder := strings.ReplaceAll(newsletter.PlaceholderThumbnail, "+", "&#43;")
	assert.Contains(t, out.(newsletter.Edition).HTML, `src="`+placeholder+`"`)
}

func TestVisualsStoresThumbnails(t *testing.T) {
	store, err := artifacts.NewLocalFS(t.TempDir())
	require.NoError(t, err)
	deps := stages.Deps{
		LLM:       scriptedLLM(),
		Artifacts: store,
		Settings:  stages.Settings{CarouselStyle: "minimalist", ArtifactBaseURL: "http://host/v1/artifacts/"},
	}
	out, err := specByID(deps, stages.Visuals).Run(context.Background(), testInput(), noTokens)
	require.NoError(t, err)

	payload, ok := out.(stages.VisualsPayload)
	require.True(t, ok)
	assert.Equal(t, "minimalist", payload.DefaultStyle)
	assert.Len(t, payload.Carousel, 3)
	require.Len(t, payload.Thumbnails, 2)

	first := payload.Thumbnails[0]
	assert.Equal(t, "AUTOMATE!", first.Caption)
	assert.True(t, strings.HasPrefix(first.Key, "jobs/job-1/visuals/thumbnail-1-"))
	assert.Equal(t, "http://host/v1/artifacts/"+first.Key, first.URL)

	assert.True(t, store.Exists(first.Key))
}

func TestVisualsDegradesWithoutThumbnails(t *testing.T) {
	base := scriptedLLM()
	gen := &fakeLLM{handle: func(req llm.Request) (string, error) {
		if strings.Contains(req.User, "BIG IDEA:") {
			return "sorry, no json", nil
		}
		return base.handle(req)
	}}
	out, err := specByID(stages.Deps{LLM: gen}, stages.Visuals).Run(context.Background(), testInput(), noTokens)
	require.NoError(t, err)
	payload := out.(stages.VisualsPayload)
	assert.Empty(t, payload.Thumbnails)
	assert.NotEmpty(t, payload.Carousel)
	assert.Equal(t, "cyberpunk", payload.DefaultStyle)
}

func TestAudioNarratesUpstreamPost(t *testing.T) {
	store, err := artifacts.NewLocalFS(t.TempDir())
	require.NoError(t, err)
	translator := &fakeTranslator{configured: true}
	deps := stages.Deps{
		LLM:         scriptedLLM(),
		Translator:  translator,
		Synthesizer: fakeSynth{},
		Artifacts:   store,
		Settings:    stages.Settings{NarrationChars: 10, NarrationLanguage: "es"},
	}
	in := testInput()
	in.Upstream = linkedinPost

	out, err := specByID(deps, stages.Audio).Run(context.Background(), in, noTokens)
	require.NoError(t, err)

	payload, ok := out.(stages.AudioPayload)
	require.True(t, ok)
	assert.Equal(t, "Spanish", payload.Lang)
	assert.Equal(t, "ES", payload.LanguageCode)
	assert.Equal(t, "ES", translator.gotLang)
	assert.Equal(t, "Most teams", translator.gotText)
	assert.Equal(t, "ES:Most teams", payload.Text)
	assert.True(t, strings.HasPrefix(payload.Key, "jobs/job-1/audio/dubbed-es-"))
	assert.True(t, strings.HasSuffix(payload.Key, ".mp3"))

	path, err := store.Path(payload.Key)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ID3ES:Most teams", string(data))
	assert.Equal(t, int64(len(data)), payload.Bytes)
}

func TestAudioRequiresUpstreamAndProviders(t *testing.T) {
	store, err := artifacts.NewLocalFS(t.TempDir())
	require.NoError(t, err)
	deps := stages.Deps{LLM: scriptedLLM(), Synthesizer: fakeSynth{}, Artifacts: store}

	_, err = specByID(deps, stages.Audio).Run(context.Background(), testInput(), noTokens)
	assert.ErrorIs(t, err, services.ErrValidation)

	in := testInput()
	in.Upstream = "post"
	_, err = specByID(deps, stages.Audio).Run(context.Background(), in, noTokens)
	assert.ErrorIs(t, err, services.ErrConfiguration)

	deps.Translator = &fakeTranslator{configured: false}
	_, err = specByID(deps, stages.Audio).Run(context.Background(), in, noTokens)
	assert.ErrorIs(t, err, services.ErrConfiguration)

	deps.Translator = &fakeTranslator{configured: true}
	deps.Synthesizer = fakeSynth{err: errors.New("quota")}
	_, err = specByID(deps, stages.Audio).Run(context.Background(), in, noTokens)
	assert.EqualError(t, err, "quota")
}

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "Spanish", stages.LanguageName("ES"))
	assert.Equal(t, "Portuguese", stages.LanguageName("PT-BR"))
	assert.Equal(t, "German", stages.LanguageName("de"))
	assert.Equal(t, "??", stages.LanguageName("??"))
}

func TestResearchTrendAndFactChecks(t *testing.T) {
	gen := scriptedLLM()
	search := &fakeSearch{}
	deps := stages.Deps{LLM: gen, Research: search, Clock: func() time.Time { return fixedNow }}
	out, err := specByID(deps, stages.Research).Run(context.Background(), testInput(), noTokens)
	require.NoError(t, err)

	payload, ok := out.(stages.ResearchPayload)
	require.True(t, ok)
	assert.Equal(t, "AI agents are everywhere this week.", payload.TrendContext)
	require.Len(t, payload.FactChecks, 2)
	assert.Equal(t, "90% of teams automate", payload.FactChecks[0].Claim)
	assert.Equal(t, "Misleading", payload.FactChecks[0].Verdict)
	assert.Equal(t, "Meetings cost $1B", payload.FactChecks[1].Claim)

	assert.Contains(t, search.queries, "trending news and current events about Automation frees small teams 2026")
	assert.Contains(t, search.queries, "is it true that 90% of teams automate")

	trend := gen.find("TOPIC:")
	require.Len(t, trend, 1)
	assert.Contains(t, trend[0].User, strings.Repeat("c", 200)+"...")
	assert.NotContains(t, trend[0].User, strings.Repeat("c", 201))
}

func TestResearchDefaultsVerdict(t *testing.T) {
	base := scriptedLLM()
	gen := &fakeLLM{handle: func(req llm.Request) (string, error) {
		if strings.Contains(req.User, "CLAIM:") {
			return `{}`, nil
		}
		return base.handle(req)
	}}
	deps := stages.Deps{LLM: gen, Research: &fakeSearch{}, Settings: stages.Settings{MaxFactChecks: 1}}
	out, err := specByID(deps, stages.Research).Run(context.Background(), testInput(), noTokens)
	require.NoError(t, err)
	checks := out.(stages.ResearchPayload).FactChecks
	require.Len(t, checks, 1)
	assert.Equal(t, stages.VerdictInconclusive, checks[0].Verdict)
	assert.Equal(t, "Could not verify claim.", checks[0].Explanation)
}

func TestResearchFailsOnlyWhenBothHalvesFail(t *testing.T) {
	failing := &fakeLLM{handle: func(llm.Request) (string, error) { return "", errors.New("llm down") }}
	deps := stages.Deps{LLM: failing, Research: &fakeSearch{err: errors.New("search down")}}
	_, err := specByID(deps, stages.Research).Run(context.Background(), testInput(), noTokens)
	assert.ErrorIs(t, err, services.ErrExternalTool)

	deps.LLM = scriptedLLM()
	out, err := specByID(deps, stages.Research).Run(context.Background(), testInput(), noTokens)
	require.NoError(t, err)
	payload := out.(stages.ResearchPayload)
	assert.Empty(t, payload.TrendContext)
	assert.Empty(t, payload.FactChecks)
}

func TestResearchNeedsProvider(t *testing.T) {
	_, err := specByID(stages.Deps{LLM: scriptedLLM()}, stages.Research).Run(context.Background(), testInput(), noTokens)
	assert.ErrorIs(t, err, services.ErrConfiguration)
}

func TestBRollSkipsTakesWithoutImages(t *testing.T) {
	in := testInput()
	in.Analysis.StrongTakes = []string{"Automation beats hiring", "we are", "nothing"}
	deps := stages.Deps{LLM: scriptedLLM(), Images: fakeImages{}}
	out, err := specByID(deps, stages.BRoll).Run(context.Background(), in, noTokens)
	require.NoError(t, err)

	images, ok := out.([]stages.BRollImage)
	require.True(t, ok)
	require.Len(t, images, 1)
	assert.Equal(t, "automation", images[0].Keyword)
	assert.Equal(t, "automation-m.jpg", images[0].ImageURL)
	assert.Equal(t, "automation-l.jpg", images[0].ImageLarge)
	assert.Equal(t, "automation", images[0].Alt)
	assert.Equal(t, "Ana", images[0].Photographer)
}

func TestBRollFailsWhenEverySearchFails(t *testing.T) {
	in := testInput()
	in.Analysis.StrongTakes = []string{"Automation beats hiring", "Meetings waste creative energy"}
	deps := stages.Deps{LLM: scriptedLLM(), Images: fakeImages{fail: map[string]bool{"automation": true, "meetings": true, "creative": true}}}
	_, err := specByID(deps, stages.BRoll).Run(context.Background(), in, noTokens)
	assert.ErrorIs(t, err, services.ErrExternalTool)

	deps.Images = fakeImages{fail: map[string]bool{"automation": true}}
	out, err := specByID(deps, stages.BRoll).Run(context.Background(), in, noTokens)
	require.NoError(t, err)
	assert.Len(t, out.([]stages.BRollImage), 1)
}

func TestAnalyzerStreamsAnalysisPrompt(t *testing.T) {
	gen := scriptedLLM()
	analyzer, err := stages.NewAnalyzer(gen, nil, "m2")
	require.NoError(t, err)

	var tokens int
	raw, err := analyzer.Analyze(context.Background(), "the transcript", "warm", func(string) { tokens++ })
	require.NoError(t, err)
	assert.Equal(t, analysisJSON, raw)
	assert.Positive(t, tokens)

	reqs := gen.find("Analyze this transcript")
	require.Len(t, reqs, 1)
	assert.Equal(t, "m2", reqs[0].Model)
	assert.InDelta(t, 0.3, reqs[0].Temperature, 1e-9)
	assert.Contains(t, reqs[0].User, "the transcript")
	assert.Contains(t, reqs[0].System, "warm")

	_, err = stages.NewAnalyzer(nil, nil, "")
	assert.ErrorIs(t, err, services.ErrConfiguration)
}

type eventLog struct {
	mu     sync.Mutex
	events []pipeline.Event
}

func (l *eventLog) Emit(ev pipeline.Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func TestFullJobThroughOrchestrator(t *testing.T) {
	gen := scriptedLLM()
	store, err := artifacts.NewLocalFS(t.TempDir())
	require.NoError(t, err)
	deps := stages.Deps{
		LLM:         gen,
		Images:      fakeImages{},
		Translator:  &fakeTranslator{configured: true},
		Synthesizer: fakeSynth{},
		Research:    &fakeSearch{},
		Artifacts:   store,
		Clock:       func() time.Time { return fixedNow },
	}
	specs, err := stages.Specs(deps)
	require.NoError(t, err)
	analyzer, err := stages.NewAnalyzer(gen, nil, "")
	require.NoError(t, err)

	orch, err := pipeline.New(specs, pipeline.Options{
		Analyzer:           analyzer,
		MaxTranscriptChars: 5000,
		Clock:              func() time.Time { return fixedNow },
		Credentials:        []pipeline.Credential{{Name: "llm.api_key", Present: true, Required: true}},
	})
	require.NoError(t, err)

	log := &eventLog{}
	result, err := orch.Run(context.Background(), pipeline.Job{ID: "job-1", Transcript: testInput().Transcript, Tone: "bold"}, log)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Empty(t, result.Errors)
	assert.Equal(t, "Automation frees small teams", result.Analysis.BigIdea)
	for _, id := range []string{"linkedin", "hooks", "twitter", "blog", "newsletter", "visuals", "audio", "research", "broll"} {
		assert.Contains(t, result.Outputs, id)
	}
	audio, ok := result.Outputs["audio"].(stages.AudioPayload)
	require.True(t, ok)
	assert.Equal(t, "ES:"+linkedinPost, audio.Text)

	log.mu.Lock()
	defer log.mu.Unlock()
	last := log.events[len(log.events)-1]
	assert.Equal(t, pipeline.EventComplete, last.Type)
}
