// Package llm provides an OpenRouter-compatible chat client used by every
// generation stage.
//
// # Entry Points
//
// NewClient: construct a client from Config.
// Client.Complete: buffered completion for background stages.
// Client.Stream: token-by-token completion over server-sent events for
// foreground stages and the analysis pass.
// Client.CompleteJSON: JSON-mode completion for structured prompts.
// Client.HealthCheck: verify the API key and model.
// DecodeLLMJSON: tolerant decoding of fenced or prose-wrapped JSON.
//
// # Retry Behaviour
//
// Requests retry on HTTP 408/429/5xx, empty completions, and network timeouts
// with exponential backoff (base 1s, max 10s, 4 attempts by default). Streams
// only retry before the first token is delivered. Context cancellation aborts
// retries immediately. Final errors carry services markers so callers can
// separate credential problems from provider outages.
package llm
