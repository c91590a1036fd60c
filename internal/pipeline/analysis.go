package pipeline

import (
	"context"
	"strings"

	"repurpose/internal/services/llm"
)

// Analysis is the distilled summary every derived stage consumes.
type Analysis struct {
	BigIdea     string   `json:"big_idea"`
	StrongTakes []string `json:"strong_takes"`
	Tone        string   `json:"tone"`
}

const maxStrongTakes = 3

// Analyzer runs the root analysis prompt and returns the model's raw text,
// reporting tokens as they stream.
type Analyzer interface {
	Analyze(ctx context.Context, transcript, tone string, tokens func(string)) (string, error)
}

// DefaultAnalysis is substituted whenever the analysis output is unusable.
func DefaultAnalysis(tone string) Analysis {
	if strings.TrimSpace(tone) == "" {
		tone = "professional"
	}
	return Analysis{
		BigIdea:     "Key insights from the video",
		StrongTakes: []string{"Point 1", "Point 2", "Point 3"},
		Tone:        tone,
	}
}

// ParseAnalysis decodes raw model output, tolerating code fences and prose
// around the JSON object. The second return is false when the default was
// substituted.
func ParseAnalysis(raw, tone string) (Analysis, bool) {
	var decoded Analysis
	if err := llm.DecodeLLMJSON(raw, &decoded); err != nil {
		return DefaultAnalysis(tone), false
	}
	decoded.BigIdea = strings.TrimSpace(decoded.BigIdea)
	if decoded.BigIdea == "" {
		return DefaultAnalysis(tone), false
	}

	takes := make([]string, 0, maxStrongTakes)
	for _, take := range decoded.StrongTakes {
		if take = strings.TrimSpace(take); take != "" {
			takes = append(takes, take)
		}
		if len(takes) == maxStrongTakes {
			break
		}
	}
	if len(takes) == 0 {
		takes = DefaultAnalysis(tone).StrongTakes
	}
	decoded.StrongTakes = takes

	decoded.Tone = strings.TrimSpace(decoded.Tone)
	if decoded.Tone == "" {
		decoded.Tone = DefaultAnalysis(tone).Tone
	}
	return decoded, true
}

// truncateRunes bounds s to limit runes without splitting a code point.
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
