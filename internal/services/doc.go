// Package services defines shared utilities consumed by the generation stages
// and the external provider integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, scheduling modes, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap and Details helpers that keep
//     provider failures classifiable (configuration vs transient vs external).
//
// Provider clients live in subpackages (llm, whisperx, pexels, deepl,
// elevenlabs, tavily) and wrap their failures with these markers so stage
// error events and logs stay uniform across the pipeline.
package services
