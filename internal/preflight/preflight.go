package preflight

import (
	"context"

	"repurpose/internal/config"
)

// Result reports the outcome of a single preflight check. Optional checks
// never block startup.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes the local preflight checks for the given config: writable
// directories and the credential matrix. Network probes are left to
// CheckLLM so startup does not spend tokens.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Artifact directory", cfg.Paths.ArtifactDir),
	}
	results = append(results, CheckCredentials(cfg)...)
	return results
}

// Blocking returns the failed checks that are not optional.
func Blocking(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			out = append(out, r)
		}
	}
	return out
}
