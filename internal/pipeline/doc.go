// Package pipeline runs one content-generation job: a mandatory analysis
// stage followed by a fixed table of derived stages, some streaming tokens in
// the foreground and the rest running in the background, with at most one
// level of chaining after a prerequisite stage.
//
// A single loop owns the job state and merges stage messages into an ordered
// NDJSON-ready event stream. Stage failures are isolated and reported as
// error events; only an empty transcript or a missing required credential
// ends a job without a complete event.
package pipeline
