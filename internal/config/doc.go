// Package config loads, normalizes, and validates repurpose configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, loads a working-directory .env, and honours environment
// fallbacks for provider keys such as OPENROUTER_API_KEY and PEXELS_API_KEY.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
