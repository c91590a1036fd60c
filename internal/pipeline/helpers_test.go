package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"repurpose/internal/pipeline"
)

type recorder struct {
	mu     sync.Mutex
	events []pipeline.Event
}

func (r *recorder) Emit(ev pipeline.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []pipeline.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]pipeline.Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) has(kind pipeline.EventType, step string) bool {
	for _, ev := range r.snapshot() {
		if ev.Type == kind && ev.Step == step {
			return true
		}
	}
	return false
}

func ofType(events []pipeline.Event, kind pipeline.EventType) []pipeline.Event {
	var out []pipeline.Event
	for _, ev := range events {
		if ev.Type == kind {
			out = append(out, ev)
		}
	}
	return out
}

func steps(events []pipeline.Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Step)
	}
	return out
}

func indexOf(events []pipeline.Event, kind pipeline.EventType, step string) int {
	for i, ev := range events {
		if ev.Type == kind && ev.Step == step {
			return i
		}
	}
	return -1
}

type stubAnalyzer struct {
	raw    string
	err    error
	tokens []string
	calls  int
	mu     sync.Mutex
}

func (a *stubAnalyzer) Analyze(_ context.Context, _ string, _ string, tokens func(string)) (string, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	for _, tok := range a.tokens {
		tokens(tok)
	}
	return a.raw, a.err
}

const validAnalysis = "```json\n{\"big_idea\": \"AI changes content\", \"strong_takes\": [\"one\", \"two\", \"three\"], \"tone\": \"bold\"}\n```"

func goodAnalyzer() *stubAnalyzer {
	return &stubAnalyzer{raw: validAnalysis, tokens: []string{"{\"big_idea\"", ": ...}"}}
}

type stubStore struct {
	err    error
	mu     sync.Mutex
	stored []*pipeline.Result
}

func (s *stubStore) Persist(_ context.Context, result *pipeline.Result) (pipeline.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stored = append(s.stored, result)
	if s.err != nil {
		return pipeline.Record{}, s.err
	}
	return pipeline.Record{ID: "rec-" + result.JobID, URL: "/v1/jobs/" + result.JobID}, nil
}

var errStub = errors.New("provider unavailable")

// stageTable mirrors the production layout with deterministic stage bodies.
func stageTable(overrides map[string]pipeline.StageFunc) []pipeline.StageSpec {
	echo := func(id string) pipeline.StageFunc {
		return func(_ context.Context, in pipeline.StageInput, _ func(string)) (any, error) {
			return id + ":" + in.Analysis.BigIdea, nil
		}
	}
	specs := []pipeline.StageSpec{
		{ID: "linkedin", Label: "Writing LinkedIn post...", Mode: pipeline.Foreground, Phase: pipeline.PhaseGeneration,
			Run: func(_ context.Context, in pipeline.StageInput, tokens func(string)) (any, error) {
				parts := []string{"Post ", "about ", in.Analysis.BigIdea}
				for _, p := range parts {
					tokens(p)
				}
				return strings.Join(parts, ""), nil
			}},
		{ID: "hooks", Mode: pipeline.Background, Phase: pipeline.PhaseGeneration, Run: echo("hooks")},
		{ID: "twitter", Mode: pipeline.Background, Phase: pipeline.PhaseGeneration, Run: echo("twitter")},
		{ID: "blog", Mode: pipeline.Background, Phase: pipeline.PhaseGeneration, Run: echo("blog")},
		{ID: "newsletter", Mode: pipeline.Background, Phase: pipeline.PhaseGeneration, Run: echo("newsletter")},
		{ID: "visuals", Mode: pipeline.Background, Phase: pipeline.PhaseGeneration, Run: echo("visuals")},
		{ID: "audio", Mode: pipeline.Background, Phase: pipeline.PhaseGeneration, After: "linkedin",
			Run: func(_ context.Context, in pipeline.StageInput, _ func(string)) (any, error) {
				text, _ := in.Upstream.(string)
				return "narrated:" + text, nil
			}},
		{ID: "research", Mode: pipeline.Background, Phase: pipeline.PhaseFeatures, Run: echo("research")},
		{ID: "broll", Mode: pipeline.Background, Phase: pipeline.PhaseFeatures, Run: echo("broll")},
	}
	for i := range specs {
		if fn, ok := overrides[specs[i].ID]; ok {
			specs[i].Run = fn
		}
	}
	return specs
}

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func baseOptions(analyzer pipeline.Analyzer) pipeline.Options {
	return pipeline.Options{
		Analyzer:           analyzer,
		MaxTranscriptChars: 5000,
		Clock:              func() time.Time { return fixedTime },
		Credentials:        []pipeline.Credential{{Name: "llm.api_key", Present: true, Required: true}},
	}
}
