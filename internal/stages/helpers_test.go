package stages_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"repurpose/internal/pipeline"
	"repurpose/internal/services/deepl"
	"repurpose/internal/services/llm"
	"repurpose/internal/services/pexels"
	"repurpose/internal/services/tavily"
	"repurpose/internal/stages"
)

type fakeLLM struct {
	mu       sync.Mutex
	requests []llm.Request
	handle   func(req llm.Request) (string, error)
}

func (f *fakeLLM) record(req llm.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
}

func (f *fakeLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	f.record(req)
	return f.handle(req)
}

func (f *fakeLLM) Stream(_ context.Context, req llm.Request, onToken func(string)) (string, error) {
	f.record(req)
	text, err := f.handle(req)
	if err != nil {
		return "", err
	}
	for _, word := range strings.SplitAfter(text, " ") {
		onToken(word)
	}
	return text, nil
}

func (f *fakeLLM) find(substr string) []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []llm.Request
	for _, req := range f.requests {
		if strings.Contains(req.User, substr) || strings.Contains(req.System, substr) {
			out = append(out, req)
		}
	}
	return out
}

const (
	analysisJSON  = `{"big_idea": "Automation frees small teams", "strong_takes": ["Automation beats hiring", "Meetings waste creative energy", "Documentation scales expertise"], "tone": "bold"}`
	linkedinPost  = "Most teams hire too early. Automate first. What would you automate today?"
	tweetThread   = "Tweet 1\nHook tweet\n---\nTweet 2: Second point\n---\nThird point\n---\n\n---\nFourth point\n---\nFifth point\n---\nSixth point"
	blogMarkdown  = "# Automation For Small Teams\n\nAutomation is the lever.\n\n## Why\n\nText.\n\n## How\n\nText.\n\n## Traps\n\nText.\n\n## Conclusion\n\nSubscribe for more."
	claimsJSON    = "```json\n{\"claims\": [\"90% of teams automate\", \"Meetings cost $1B\", \"Third claim\"]}\n```"
	verdictJSON   = `{"verdict": "Misleading", "explanation": "Numbers are older."}`
	thumbnailJSON = `{"variants": [{"prompt": "robot desk", "text": "AUTOMATE!"}, {"prompt": "empty office", "text": "NO HIRES"}]}`
)

// scriptedLLM answers each prompt kind with canned output.
func scriptedLLM() *fakeLLM {
	return &fakeLLM{handle: func(req llm.Request) (string, error) {
		switch {
		case strings.Contains(req.User, "Analyze this transcript"):
			return analysisJSON, nil
		case strings.Contains(req.User, "Write a LinkedIn post"):
			return linkedinPost, nil
		case strings.Contains(req.User, "tweet thread"):
			return tweetThread, nil
		case strings.Contains(req.User, "SEO-optimized blog post"):
			return blogMarkdown, nil
		case strings.Contains(req.User, "Write ONE opening hook"):
			fw := between(req.User, "Framework: ", "\n")
			return "Hook for " + fw, nil
		case strings.Contains(req.User, "TOPIC:"):
			return "AI agents are everywhere this week.", nil
		case strings.Contains(req.System, "Extract 2-3"):
			return claimsJSON, nil
		case strings.Contains(req.User, "CLAIM:"):
			return verdictJSON, nil
		case strings.Contains(req.User, "BIG IDEA:"):
			return thumbnailJSON, nil
		}
		return "", errors.New("unexpected prompt")
	}}
}

func between(s, start, end string) string {
	_, rest, ok := strings.Cut(s, start)
	if !ok {
		return ""
	}
	head, _, _ := strings.Cut(rest, end)
	return strings.TrimSpace(head)
}

type fakeTranslator struct {
	configured bool
	gotText    string
	gotLang    string
}

func (f *fakeTranslator) Configured() bool { return f.configured }

func (f *fakeTranslator) Translate(_ context.Context, text, lang string) (deepl.Translation, error) {
	f.gotText, f.gotLang = text, lang
	return deepl.Translation{Text: "ES:" + text, DetectedSourceLanguage: "EN"}, nil
}

type fakeSynth struct{ err error }

func (f fakeSynth) Synthesize(_ context.Context, text string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("ID3" + text), nil
}

type fakeSearch struct {
	mu      sync.Mutex
	queries []string
	err     error
}

func (f *fakeSearch) Search(_ context.Context, query string, max int) ([]tavily.Result, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []tavily.Result{{Title: "Story", URL: "https://news.example/1", Content: strings.Repeat("c", 300)}}
	return out[:min(max, len(out))], nil
}

type fakeImages struct {
	fail map[string]bool
}

func (f fakeImages) Search(_ context.Context, query string) ([]pexels.Photo, error) {
	if f.fail[query] {
		return nil, errors.New("pexels down")
	}
	if query == "nothing" {
		return nil, nil
	}
	var p pexels.Photo
	p.URL = "https://pexels.com/photo/" + query
	p.Photographer = "Ana"
	p.Src.Medium = query + "-m.jpg"
	p.Src.Large = query + "-l.jpg"
	return []pexels.Photo{p}, nil
}

var fixedNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func testInput() pipeline.StageInput {
	return pipeline.StageInput{
		JobID:      "job-1",
		Source:     "https://youtu.be/dQw4w9WgXcQ",
		Transcript: "We automated onboarding and stopped hiring. " + strings.Repeat("More detail. ", 400),
		Tone:       "bold",
		Analysis: pipeline.Analysis{
			BigIdea:     "Automation frees small teams",
			StrongTakes: []string{"Automation beats hiring", "Meetings waste creative energy", "Documentation scales expertise"},
			Tone:        "bold",
		},
	}
}

// specByID builds the stage table and returns the named stage.
func specByID(deps stages.Deps, id string) pipeline.StageSpec {
	specs, err := stages.Specs(deps)
	if err != nil {
		panic(err)
	}
	for _, s := range specs {
		if s.ID == id {
			return s
		}
	}
	panic("no stage " + id)
}

func noTokens(string) {}
