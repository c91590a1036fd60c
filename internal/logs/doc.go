// Package logs provides file tailing and log stream helpers shared by the CLI
// and the HTTP API.
//
// Tail streams log files with bounded memory usage, supports negative offsets
// for "last N lines" reads, and powers follow mode. StreamClient reads the
// daemon's in-memory log stream over HTTP.
package logs
