package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DecodeLLMJSON decodes JSON from a model response, tolerating code fences and
// prose around the object.
func DecodeLLMJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}

	directErr := json.Unmarshal([]byte(trimmed), target)
	if directErr == nil {
		return nil
	}

	var firstErr error
	for _, candidate := range jsonCandidates(trimmed) {
		if candidate == trimmed {
			continue
		}
		err := json.Unmarshal([]byte(candidate), target)
		if err == nil {
			return nil
		}
		if firstErr == nil {
			firstErr = fmt.Errorf("%w (sanitized payload snippet: %s)", err, summarizePayloadSnippet(candidate))
		}
	}
	if firstErr != nil {
		return firstErr
	}
	return fmt.Errorf("%w (payload snippet: %s)", directErr, summarizePayloadSnippet(trimmed))
}

// ExtractJSON strips a ```json / ``` fence and returns the span from the
// first opening brace or bracket to the last matching closer, dropping prose
// on either side.
func ExtractJSON(content string) string {
	candidates := jsonCandidates(content)
	if len(candidates) == 0 {
		return ""
	}
	return candidates[0]
}

// jsonCandidates lists the spans worth decoding, earliest opener first.
func jsonCandidates(content string) []string {
	trimmed := strings.TrimSpace(stripCodeFenceBlock(content))
	if trimmed == "" {
		return nil
	}
	type span struct{ start, end int }
	spans := make([]span, 0, 2)
	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(trimmed, pair[0])
		if start < 0 {
			continue
		}
		if end := strings.LastIndex(trimmed, pair[1]); end > start {
			spans = append(spans, span{start, end})
		}
	}
	if len(spans) == 2 && spans[1].start < spans[0].start {
		spans[0], spans[1] = spans[1], spans[0]
	}
	out := make([]string, 0, len(spans)+1)
	for _, sp := range spans {
		out = append(out, strings.TrimSpace(trimmed[sp.start:sp.end+1]))
	}
	if len(out) == 0 {
		out = append(out, trimmed)
	}
	return out
}

func stripCodeFenceBlock(content string) string {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "```")
	if start < 0 {
		return trimmed
	}
	body := strings.TrimLeft(trimmed[start+3:], " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = strings.TrimLeft(body[4:], " \t\r\n")
	}
	if idx := strings.Index(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func summarizePayloadSnippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return "<empty>"
	}
	const limit = 160
	if runes := []rune(clean); len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
