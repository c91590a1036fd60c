// Package bootstrap assembles the provider clients, stage table, job store,
// and orchestrator from configuration so the CLI and the daemon build the
// same runtime.
package bootstrap
