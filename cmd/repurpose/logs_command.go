package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"repurpose/internal/config"
	"repurpose/internal/logging"
	"repurpose/internal/logs"
)

type logsFlags struct {
	follow    bool
	lines     int
	jobID     string
	component string
	fileOnly  bool
}

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var flags logsFlags

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !flags.fileOnly {
				err := streamLogsFromAPI(cmd, cfg, flags)
				if err == nil {
					return nil
				}
				if !logs.IsAPIUnavailable(err) {
					return err
				}
			}
			return tailLogFile(cmd, filepath.Join(cfg.Paths.LogDir, "repurpose.log"), flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&flags.lines, "lines", "n", 10, "Number of lines to show (0 for all)")
	cmd.Flags().StringVar(&flags.jobID, "job", "", "Only show entries for this job")
	cmd.Flags().StringVar(&flags.component, "component", "", "Only show entries from this component (API only)")
	cmd.Flags().BoolVar(&flags.fileOnly, "file", false, "Read the log file directly instead of the daemon API")
	return cmd
}

func streamLogsFromAPI(cmd *cobra.Command, cfg *config.Config, flags logsFlags) error {
	client, err := logs.NewStreamClient(cfg.Paths.APIBind, cfg.Paths.APIToken)
	if err != nil {
		return err
	}
	if client == nil {
		return logs.ErrAPIUnavailable
	}

	query := logs.StreamQuery{
		Limit:     flags.lines,
		Component: flags.component,
		JobID:     flags.jobID,
	}
	if query.Limit <= 0 {
		query.Limit = 200
	}

	printed := false
	for {
		resp, err := client.Fetch(cmd.Context(), query)
		if err != nil {
			if cmd.Context().Err() != nil {
				return nil
			}
			return err
		}
		for _, evt := range resp.Events {
			fmt.Fprintln(cmd.OutOrStdout(), formatLogEvent(evt))
			printed = true
		}
		if !flags.follow {
			if !printed {
				fmt.Fprintln(cmd.OutOrStdout(), "No log entries available")
			}
			return nil
		}
		query.Since = resp.Next
		query.Limit = 200
		query.Follow = true
	}
}

func tailLogFile(cmd *cobra.Command, path string, flags logsFlags) error {
	opts := logs.TailOptions{
		Offset: -1,
		Limit:  flags.lines,
		Follow: flags.follow,
		Wait:   time.Second,
		Match:  flags.jobID,
	}
	if flags.lines <= 0 {
		opts.Offset = 0
		opts.Limit = 0
	}

	printed := false
	for {
		result, err := logs.Tail(cmd.Context(), path, opts)
		if err != nil {
			if cmd.Context().Err() != nil {
				return nil
			}
			return fmt.Errorf("tail logs: %w", err)
		}
		for _, line := range result.Lines {
			fmt.Fprintln(cmd.OutOrStdout(), line)
			printed = true
		}
		if !flags.follow {
			if !printed {
				fmt.Fprintln(cmd.OutOrStdout(), "No log entries available")
			}
			return nil
		}
		if len(result.Lines) == 0 {
			select {
			case <-cmd.Context().Done():
				return nil
			case <-time.After(opts.Wait):
			}
		}
		opts.Offset = result.Offset
		opts.Limit = 0
	}
}

func formatLogEvent(evt logging.LogEvent) string {
	ts := evt.Timestamp.Format("2006-01-02 15:04:05")
	level := strings.ToUpper(strings.TrimSpace(evt.Level))
	if level == "" {
		level = "INFO"
	}
	parts := []string{ts, level}
	if component := strings.TrimSpace(evt.Component); component != "" {
		parts = append(parts, fmt.Sprintf("[%s]", component))
	}
	line := strings.Join(parts, " ")
	if subject := composeSubject(evt.JobID, evt.Stage); subject != "" {
		line += " " + subject
	}
	if message := strings.TrimSpace(evt.Message); message != "" {
		line += " - " + message
	}
	if len(evt.Fields) == 0 {
		return line
	}
	keys := make([]string, 0, len(evt.Fields))
	for key := range evt.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	builder := strings.Builder{}
	builder.WriteString(line)
	for _, key := range keys {
		value := strings.TrimSpace(evt.Fields[key])
		if value == "" {
			continue
		}
		builder.WriteString("\n    - ")
		builder.WriteString(key)
		builder.WriteString(": ")
		builder.WriteString(value)
	}
	return builder.String()
}

func composeSubject(jobID, stage string) string {
	jobID = strings.TrimSpace(jobID)
	stage = strings.TrimSpace(stage)
	switch {
	case jobID != "" && stage != "":
		return fmt.Sprintf("Job %s (%s)", jobID, stage)
	case jobID != "":
		return "Job " + jobID
	default:
		return stage
	}
}
