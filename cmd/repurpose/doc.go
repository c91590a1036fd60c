// Package main hosts the repurpose CLI entrypoint and command graph.
//
// The Cobra command tree runs generation jobs in-process, serves the HTTP
// API, inspects stored job history, tails logs, and scaffolds configuration.
// Wiring of providers, stages, and storage lives in internal/bootstrap so the
// commands here stay focused on flags and terminal output.
package main
