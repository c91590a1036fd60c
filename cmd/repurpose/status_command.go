package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"repurpose/internal/config"
	"repurpose/internal/daemonctl"
	"repurpose/internal/deps"
	"repurpose/internal/jobstore"
	"repurpose/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var checkLLM bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dependency, and job store status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			var lines []string
			lines = append(lines, renderSectionHeader("Daemon", colorize)...)
			lines = append(lines, daemonStatusLine(cmd.Context(), cfg, colorize))

			lines = append(lines, renderSectionHeader("Preflight", colorize)...)
			results := preflight.RunAll(cmd.Context(), cfg)
			results = append(results, preflight.CheckNotificationsFromConfig(cfg))
			if checkLLM {
				results = append(results, preflight.CheckLLM(cmd.Context(), "LLM API", cfg.LLM))
			}
			lines = append(lines, preflightLines(results, colorize)...)

			lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
			lines = append(lines, dependencyLines(preflight.CheckSystemDeps(cfg), colorize)...)

			lines = append(lines, renderSectionHeader("Job Store", colorize)...)
			lines = append(lines, jobStoreLines(cmd.Context(), cfg, colorize)...)

			printLines(out, lines...)
			if blocking := preflight.Blocking(results); len(blocking) > 0 {
				return fmt.Errorf("%d blocking check(s) failed", len(blocking))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkLLM, "check-llm", false, "Probe the LLM API with a minimal request")
	return cmd
}

func daemonStatusLine(ctx context.Context, cfg *config.Config, colorize bool) string {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return renderStatusLine("API", statusWarn, "api_bind not configured", colorize)
	}
	running, pid := daemonctl.ProcessInfo(ctx, cfg)
	switch {
	case running && pid > 0:
		return renderStatusLine("API", statusOK, fmt.Sprintf("Running on %s (pid %d)", bind, pid), colorize)
	case running:
		return renderStatusLine("API", statusOK, "Running on "+bind, colorize)
	case pid > 0:
		return renderStatusLine("API", statusWarn, fmt.Sprintf("Not answering (stale pid %d)", pid), colorize)
	default:
		return renderStatusLine("API", statusInfo, "Not running", colorize)
	}
}

func preflightLines(results []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, renderStatusLine(r.Name, checkKind(r.Passed, r.Optional), r.Detail, colorize))
	}
	return lines
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses)+1)
	missingRequired := 0
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missingRequired++
		}
	}
	if missingRequired > 0 {
		lines = append(lines, renderStatusLine("Summary", statusError, fmt.Sprintf("%d required missing", missingRequired), colorize))
	} else {
		lines = append(lines, renderStatusLine("Summary", statusOK, "All required available", colorize))
	}
	for _, s := range statuses {
		switch {
		case s.Available:
			lines = append(lines, renderStatusLine(s.Name, statusOK, fmt.Sprintf("Ready (command: %s)", s.Command), colorize))
		case s.Optional:
			detail := s.Detail
			if detail == "" {
				detail = "not available"
			}
			lines = append(lines, renderStatusLine(s.Name, statusWarn, detail, colorize))
		default:
			lines = append(lines, renderStatusLine(s.Name, statusError, "not available", colorize))
		}
	}
	return lines
}

func jobStoreLines(ctx context.Context, cfg *config.Config, colorize bool) []string {
	store, err := jobstore.Open(cfg)
	if err != nil {
		return []string{renderStatusLine("Database", statusError, err.Error(), colorize)}
	}
	defer store.Close()

	health, err := store.CheckHealth(ctx)
	if err != nil {
		return []string{renderStatusLine("Database", statusError, err.Error(), colorize)}
	}
	kind := statusOK
	detail := health.DBPath
	if !health.IntegrityCheck {
		kind = statusError
		detail = fmt.Sprintf("%s (integrity check failed)", health.DBPath)
	}
	lines := []string{renderStatusLine("Database", kind, detail, colorize)}

	summary, err := store.Health(ctx)
	if err != nil {
		return append(lines, renderStatusLine("Jobs", statusError, err.Error(), colorize))
	}
	lines = append(lines, renderStatusLine("Jobs", statusInfo,
		fmt.Sprintf("%d stored (%d complete, %d partial)", summary.Total, summary.Complete, summary.Partial), colorize))
	return lines
}
