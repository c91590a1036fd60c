// Package notifications delivers job events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when notifications are disabled. Event
// types cover job completion, fatal job failures, and a test ping, so the CLI
// and API server emit consistent messages without duplicating HTTP glue.
package notifications
