package testsupport

import (
	"context"
	"testing"
	"time"

	"repurpose/internal/config"
	"repurpose/internal/jobstore"
	"repurpose/internal/pipeline"
)

// MustOpenStore opens a jobstore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobstore.Store {
	t.Helper()

	store, err := jobstore.Open(cfg)
	if err != nil {
		t.Fatalf("jobstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewResult builds a finished job result with one successful and, when
// failed is non-empty, one failed stage.
func NewResult(id string, finished time.Time, failed string) *pipeline.Result {
	result := &pipeline.Result{
		JobID:    id,
		Tone:     "professional",
		Analysis: pipeline.Analysis{BigIdea: "Big idea " + id, StrongTakes: []string{"a", "b", "c"}, Tone: "bold"},
		Outputs:  map[string]any{"linkedin": "post for " + id},
		Errors:   []pipeline.StageError{},
		Stages: []pipeline.StageSummary{
			{Step: "linkedin", Mode: pipeline.Foreground, Status: pipeline.StatusSuccess, DurationMS: 12},
		},
		StartedAt:  finished.Add(-time.Minute),
		FinishedAt: finished,
	}
	if failed != "" {
		result.Errors = append(result.Errors, pipeline.StageError{Step: failed, Message: failed + " failed"})
		result.Stages = append(result.Stages, pipeline.StageSummary{
			Step: failed, Mode: pipeline.Background, Status: pipeline.StatusFailure, Reason: failed + " failed",
		})
	}
	return result
}

// Persist stores result in store and fails the test on error.
func Persist(t testing.TB, store *jobstore.Store, result *pipeline.Result) pipeline.Record {
	t.Helper()

	rec, err := store.Persist(context.Background(), result)
	if err != nil {
		t.Fatalf("store.Persist: %v", err)
	}
	return rec
}
