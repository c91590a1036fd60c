package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"repurpose/internal/jobstore"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage stored jobs",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsDeleteCommand(ctx))
	jobsCmd.AddCommand(newJobsPruneCommand(ctx))
	jobsCmd.AddCommand(newJobsHealthCommand(ctx))

	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var status string
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := jobstore.ListFilter{Limit: limit}
			switch s := jobstore.Status(strings.ToLower(strings.TrimSpace(status))); s {
			case "":
			case jobstore.StatusComplete, jobstore.StatusPartial:
				filter.Status = s
			default:
				return fmt.Errorf("unknown status %q (want complete or partial)", status)
			}

			return ctx.withStore(func(store *jobstore.Store) error {
				jobs, err := store.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, jobs)
				}
				out := cmd.OutOrStdout()
				if len(jobs) == 0 {
					fmt.Fprintln(out, "No jobs stored")
					return nil
				}
				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					rows = append(rows, []string{
						job.ID,
						string(job.Status),
						strconv.Itoa(job.ErrorCount),
						formatTimestamp(job.FinishedAt),
						truncate(job.BigIdea, 60),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Status", "Errors", "Finished", "Big Idea"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (complete or partial)")
	cmd.Flags().IntVarP(&limit, "limit", "n", jobstore.DefaultListLimit, "Maximum jobs to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var stage string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a stored job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *jobstore.Store) error {
				job, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if job == nil {
					return fmt.Errorf("job %s not found", args[0])
				}

				if stage = strings.TrimSpace(stage); stage != "" {
					result, err := job.Decode()
					if err != nil {
						return fmt.Errorf("decode job %s: %w", job.ID, err)
					}
					output, ok := result.Outputs[stage]
					if !ok {
						return fmt.Errorf("job %s has no output for stage %q", job.ID, stage)
					}
					return writeJSON(cmd, output)
				}
				if asJSON {
					return writeJSON(cmd, job.Result)
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				printLines(out, renderSectionHeader("Job "+job.ID, colorize)...)
				kind := statusOK
				if job.Status == jobstore.StatusPartial {
					kind = statusWarn
				}
				fmt.Fprintln(out, renderStatusLine("Status", kind, string(job.Status), colorize))
				fmt.Fprintln(out, renderStatusLine("Big idea", statusInfo, job.BigIdea, colorize))
				fmt.Fprintln(out, renderStatusLine("Tone", statusInfo, job.Tone, colorize))
				if job.Source != "" {
					fmt.Fprintln(out, renderStatusLine("Source", statusInfo, job.Source, colorize))
				}
				fmt.Fprintln(out, renderStatusLine("Finished", statusInfo, formatTimestamp(job.FinishedAt), colorize))
				if job.URL != "" {
					fmt.Fprintln(out, renderStatusLine("URL", statusInfo, job.URL, colorize))
				}

				rows := make([][]string, 0, len(job.Stages))
				for _, s := range job.Stages {
					rows = append(rows, []string{s.Step, string(s.Mode), string(s.Status), s.Reason})
				}
				if len(rows) > 0 {
					fmt.Fprintln(out, renderTable([]string{"Stage", "Mode", "Status", "Reason"}, rows, nil))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result document")
	cmd.Flags().StringVar(&stage, "stage", "", "Print only this stage's output as JSON")
	return cmd
}

func newJobsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete stored jobs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *jobstore.Store) error {
				out := cmd.OutOrStdout()
				missing := 0
				for _, id := range args {
					removed, err := store.Delete(cmd.Context(), id)
					if err != nil {
						return err
					}
					if !removed {
						fmt.Fprintf(out, "Job %s not found\n", id)
						missing++
						continue
					}
					fmt.Fprintf(out, "Deleted job %s\n", id)
				}
				if missing == len(args) {
					return fmt.Errorf("no jobs deleted")
				}
				return nil
			})
		},
	}
}

func newJobsPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete jobs stored before a cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			cutoff := time.Now().Add(-olderThan)
			return ctx.withStore(func(store *jobstore.Store) error {
				removed, err := store.Prune(cmd.Context(), cutoff)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d job(s) stored before %s\n", removed, formatTimestamp(cutoff))
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age threshold for pruning")
	return cmd
}

func newJobsHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the job database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *jobstore.Store) error {
				health, err := store.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database path: %s\n", health.DBPath)
				fmt.Fprintf(out, "Database exists: %s\n", yesNo(health.DatabaseExists))
				fmt.Fprintf(out, "Readable: %s\n", yesNo(health.DatabaseReadable))
				fmt.Fprintf(out, "Schema version: %d\n", health.SchemaVersion)
				fmt.Fprintf(out, "Integrity check: %s\n", yesNo(health.IntegrityCheck))
				fmt.Fprintf(out, "Stored jobs: %d\n", health.TotalJobs)
				if health.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", health.Error)
				}
				return nil
			})
		},
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func truncate(value string, limit int) string {
	runes := []rune(strings.TrimSpace(value))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit-1]) + "…"
}
