// Package logging assembles the structured slog loggers used across repurpose.
//
// It owns the console and JSON handlers, level and output plumbing, and the
// context helpers that tag log lines with job IDs, stages, scheduling modes,
// and correlation IDs. StreamHub keeps a bounded in-memory tail of recent
// records so the HTTP API can serve live logs, and ProgressSampler throttles
// chatty progress reporting from external tools.
package logging
