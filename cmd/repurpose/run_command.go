package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"repurpose/internal/bootstrap"
	"repurpose/internal/config"
	"repurpose/internal/logging"
	"repurpose/internal/notifications"
	"repurpose/internal/pipeline"
)

type runFlags struct {
	transcriptFile string
	source         string
	jobID          string
	tone           string
	platforms      []string
	foreground     []string
	ndjson         bool
	noStore        bool
	jobLog         string
	logLevel       string
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a generation job and stream its events",
		Long: "Run a generation job in-process. The transcript is read from --transcript-file,\n" +
			"from stdin when piped, or produced by transcribing --source.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			job, err := buildJob(cmd.InOrStdin(), flags, cfg)
			if err != nil {
				return err
			}

			logger, closeLog, err := runLogger(cfg, flags)
			if err != nil {
				return err
			}
			defer closeLog()

			opts := bootstrap.Options{Logger: logger, SkipStore: flags.noStore}
			if cmd.Flags().Changed("foreground") {
				opts.ForegroundStages = flags.foreground
			}
			rt, err := bootstrap.New(cfg, opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.Orchestrator.ValidatePlatforms(job.Platforms); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var sink pipeline.Sink
			if flags.ndjson {
				sink = pipeline.NewNDJSONSink(out)
			} else {
				sink = newPrettySink(out, shouldColorize(out))
			}

			result, runErr := rt.Orchestrator.Run(cmd.Context(), job, pipeline.NewRegistry(sink))
			notifyCtx := context.WithoutCancel(cmd.Context())
			if err := notifications.PublishOutcome(notifyCtx, rt.Notifier, job.ID, result, runErr); err != nil {
				logging.WarnWithContext(logger, "job notification failed", "notification_failed",
					logging.String("job_id", job.ID),
					logging.Error(err),
				)
			}
			return runErr
		},
	}

	cmd.Flags().StringVarP(&flags.transcriptFile, "transcript-file", "t", "", "Transcript file to repurpose (- for stdin)")
	cmd.Flags().StringVarP(&flags.source, "source", "s", "", "Media file or URL to transcribe when no transcript is given")
	cmd.Flags().StringVar(&flags.jobID, "id", "", "Job identifier (defaults to a random UUID)")
	cmd.Flags().StringVar(&flags.tone, "tone", "", "Tone profile for generated copy")
	cmd.Flags().StringSliceVarP(&flags.platforms, "platforms", "p", nil, "Platforms to generate for (comma separated)")
	cmd.Flags().StringSliceVar(&flags.foreground, "foreground", nil, "Stages to stream in the foreground (overrides config)")
	cmd.Flags().BoolVar(&flags.ndjson, "ndjson", false, "Write raw NDJSON events instead of formatted output")
	cmd.Flags().BoolVar(&flags.noStore, "no-store", false, "Do not persist the job record")
	cmd.Flags().StringVar(&flags.jobLog, "job-log", "", "Also write debug logs for this job to the given file")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "warn", "Log level for stderr output")
	return cmd
}

// buildJob resolves the transcript input and applies configured defaults.
func buildJob(stdin io.Reader, flags runFlags, cfg *config.Config) (pipeline.Job, error) {
	job := pipeline.Job{
		ID:        strings.TrimSpace(flags.jobID),
		Source:    strings.TrimSpace(flags.source),
		Tone:      strings.TrimSpace(flags.tone),
		Platforms: flags.platforms,
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if len(job.Platforms) == 0 && cfg != nil {
		job.Platforms = cfg.Generation.DefaultPlatforms
	}

	path := strings.TrimSpace(flags.transcriptFile)
	switch {
	case path == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return job, fmt.Errorf("read transcript from stdin: %w", err)
		}
		job.Transcript = string(data)
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return job, fmt.Errorf("read transcript: %w", err)
		}
		job.Transcript = string(data)
	case job.Source == "":
		if isInteractive(stdin) {
			return job, errors.New("no input: pass --transcript-file, --source, or pipe a transcript on stdin")
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return job, fmt.Errorf("read transcript from stdin: %w", err)
		}
		job.Transcript = string(data)
	}
	return job, nil
}

func isInteractive(r io.Reader) bool {
	file, ok := r.(*os.File)
	return ok && isTerminal(file)
}

// runLogger writes warnings to stderr and, with --job-log, a full debug copy
// of the run to a file.
func runLogger(cfg *config.Config, flags runFlags) (*slog.Logger, func(), error) {
	level := strings.TrimSpace(flags.logLevel)
	if level == "" {
		level = cfg.Logging.Level
	}
	base, err := logging.New(logging.Options{
		Level:            level,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}

	path := strings.TrimSpace(flags.jobLog)
	if path == "" {
		return base, func() {}, nil
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open job log: %w", err)
	}
	handler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})
	return logging.TeeLogger(base, handler), func() { _ = file.Close() }, nil
}
