package jobstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"repurpose/internal/pipeline"
	"repurpose/internal/services"
)

const summaryColumns = `id, source, tone, big_idea, status, error_count, started_at, finished_at, stored_at`

// Persist stores a finished job, replacing any earlier copy with the same ID.
func (s *Store) Persist(ctx context.Context, result *pipeline.Result) (pipeline.Record, error) {
	ctx = ensureContext(ctx)
	if result == nil || strings.TrimSpace(result.JobID) == "" {
		return pipeline.Record{}, services.Wrap(services.ErrValidation, "jobstore", "persist", "result has no job id", nil)
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return pipeline.Record{}, services.Wrap(services.ErrValidation, "jobstore", "persist", "encode result", err)
	}
	storedAt := s.now().UTC().Format(time.RFC3339Nano)

	err = retryOnBusy(ctx, func() error {
		return s.persistTx(ctx, result, string(payload), storedAt)
	})
	if err != nil {
		return pipeline.Record{}, services.Wrap(services.ErrTransient, "jobstore", "persist", "write job", err)
	}
	return pipeline.Record{ID: result.JobID, URL: s.JobURL(result.JobID)}, nil
}

func (s *Store) persistTx(ctx context.Context, result *pipeline.Result, payload, storedAt string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin persist tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO jobs (`+summaryColumns+`, result_json)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             source = excluded.source, tone = excluded.tone, big_idea = excluded.big_idea,
             status = excluded.status, error_count = excluded.error_count,
             started_at = excluded.started_at, finished_at = excluded.finished_at,
             stored_at = excluded.stored_at, result_json = excluded.result_json`,
		result.JobID,
		nullableString(result.Source),
		result.Tone,
		result.Analysis.BigIdea,
		StatusFor(result),
		len(result.Errors),
		formatTime(result.StartedAt),
		formatTime(result.FinishedAt),
		storedAt,
		payload,
	)
	if err != nil {
		return fmt.Errorf("upsert job: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM job_stages WHERE job_id = ?`, result.JobID); err != nil {
		return fmt.Errorf("clear stages: %w", err)
	}
	for _, stage := range result.Stages {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO job_stages (job_id, step, mode, status, reason, duration_ms) VALUES (?, ?, ?, ?, ?, ?)`,
			result.JobID, stage.Step, stage.Mode, stage.Status, nullableString(stage.Reason), stage.DurationMS,
		)
		if err != nil {
			return fmt.Errorf("insert stage %s: %w", stage.Step, err)
		}
	}
	return tx.Commit()
}

// Get fetches a stored job. A missing job returns nil without error.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+summaryColumns+`, result_json FROM jobs WHERE id = ?`, id)
	var (
		job     Job
		payload string
	)
	summary, err := s.scanSummary(row, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	job.Summary = *summary
	job.Result = json.RawMessage(payload)

	stages, err := s.stages(ctx, id)
	if err != nil {
		return nil, err
	}
	job.Stages = stages
	return &job, nil
}

func (s *Store) stages(ctx context.Context, id string) ([]pipeline.StageSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT step, mode, status, reason, duration_ms FROM job_stages WHERE job_id = ? ORDER BY rowid`, id)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer rows.Close()

	out := []pipeline.StageSummary{}
	for rows.Next() {
		var (
			stage  pipeline.StageSummary
			reason sql.NullString
		)
		if err := rows.Scan(&stage.Step, &stage.Mode, &stage.Status, &reason, &stage.DurationMS); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		stage.Reason = reason.String
		out = append(out, stage)
	}
	return out, rows.Err()
}

// List returns stored jobs, most recently finished first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Summary, error) {
	ctx = ensureContext(ctx)
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query := `SELECT ` + summaryColumns + ` FROM jobs`
	args := []any{}
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY finished_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		summary, err := s.scanSummary(rows, nil)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, *summary)
	}
	return out, rows.Err()
}

// Delete removes a stored job and reports whether it existed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	ctx = ensureContext(ctx)
	var affected int64
	err := retryOnBusy(ctx, func() error {
		n, err := s.deleteWhere(ctx, `id = ?`, id)
		affected = n
		return err
	})
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	return affected > 0, nil
}

// Prune removes jobs finished before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	var affected int64
	err := retryOnBusy(ctx, func() error {
		n, err := s.deleteWhere(ctx, `finished_at < ?`, formatTime(cutoff))
		affected = n
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune jobs: %w", err)
	}
	return affected, nil
}

// deleteWhere removes matching jobs and their stage rows in one transaction.
// Stage rows are deleted explicitly since foreign_keys is a per-connection
// pragma.
func (s *Store) deleteWhere(ctx context.Context, where string, args ...any) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM job_stages WHERE job_id IN (SELECT id FROM jobs WHERE `+where+`)`, args...); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE `+where, args...)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return affected, tx.Commit()
}

func (s *Store) scanSummary(scanner interface{ Scan(dest ...any) error }, payload *string) (*Summary, error) {
	var (
		summary                           Summary
		source                            sql.NullString
		started, finished, stored, status string
	)
	dest := []any{&summary.ID, &source, &summary.Tone, &summary.BigIdea, &status, &summary.ErrorCount, &started, &finished, &stored}
	if payload != nil {
		dest = append(dest, payload)
	}
	if err := scanner.Scan(dest...); err != nil {
		return nil, err
	}
	summary.Source = source.String
	summary.Status = Status(status)
	summary.StartedAt, _ = parseTimeString(started)
	summary.FinishedAt, _ = parseTimeString(finished)
	summary.StoredAt, _ = parseTimeString(stored)
	summary.URL = s.JobURL(summary.ID)
	return &summary, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// formatTime uses a fixed-width layout so stored timestamps sort lexically.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
