package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

type streamChunk struct {
	Choices []struct {
		Delta        chatCompletionMessage `json:"delta"`
		FinishReason string                `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Stream issues a streaming chat completion, invoking onToken for every content
// delta in arrival order, and returns the concatenated text. Connection
// failures are retried like Complete until the first token has been delivered;
// after that a broken stream is returned as an error.
func (c *Client) Stream(ctx context.Context, req Request, onToken func(string)) (string, error) {
	payload, err := c.buildPayload(req, true)
	if err != nil {
		return "", classify("stream", err)
	}
	if c.cfg.APIKey == "" {
		return "", classify("stream", errMissingAPIKey)
	}
	if onToken == nil {
		onToken = func(string) {}
	}

	attempts := c.retryAttempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		text, delivered, err := c.streamOnce(ctx, payload, onToken)
		if err == nil {
			return text, nil
		}
		if delivered {
			return text, classify("stream", err)
		}
		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return "", classify("stream", err)
		}
		if err := c.sleep(ctx, delay); err != nil {
			return "", classify("stream", err)
		}
		lastErr = err
	}
	return "", classify("stream", fmt.Errorf("llm stream: failed after %d attempts: %w", attempts, lastErr))
}

func (c *Client) streamOnce(ctx context.Context, payload chatCompletionRequest, onToken func(string)) (string, bool, error) {
	resp, err := c.post(ctx, payload)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()

	var text strings.Builder
	delivered := false
	err = readDataLines(resp.Body, func(data string) (bool, error) {
		if data == "[DONE]" {
			return true, nil
		}
		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return false, fmt.Errorf("llm stream: decode chunk: %w (chunk: %s)", err, summarizePayloadSnippet(data))
		}
		if chunk.Error != nil {
			return false, fmt.Errorf("llm stream: api error: %s", strings.TrimSpace(chunk.Error.Message))
		}
		for _, choice := range chunk.Choices {
			if token := choice.Delta.Content; token != "" {
				text.WriteString(token)
				delivered = true
				onToken(token)
			}
		}
		return false, nil
	})
	if err != nil {
		return text.String(), delivered, err
	}
	if text.Len() == 0 {
		return "", false, &emptyContentError{Op: "llm stream", Snippet: "<no deltas>"}
	}
	return text.String(), delivered, nil
}

// readDataLines walks a server-sent event body and hands each data payload to
// fn. Comment lines (": keep-alive") and other fields are skipped. fn returns
// true to stop early.
func readDataLines(body io.Reader, fn func(data string) (bool, error)) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var pending strings.Builder
	flush := func() (bool, error) {
		if pending.Len() == 0 {
			return false, nil
		}
		data := pending.String()
		pending.Reset()
		return fn(data)
	}
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		switch {
		case line == "":
			if stop, err := flush(); err != nil || stop {
				return err
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "data:"):
			if pending.Len() > 0 {
				pending.WriteByte('\n')
			}
			pending.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("llm stream: read: %w", err)
	}
	if _, err := flush(); err != nil {
		return err
	}
	return nil
}
