package jobstore

import (
	"encoding/json"
	"time"

	"repurpose/internal/pipeline"
)

// Status summarizes how a stored job ended.
type Status string

const (
	// StatusComplete means every enabled stage produced output.
	StatusComplete Status = "complete"
	// StatusPartial means at least one stage reported an error.
	StatusPartial Status = "partial"
)

// StatusFor classifies a finished result.
func StatusFor(result *pipeline.Result) Status {
	if result == nil || len(result.Errors) > 0 {
		return StatusPartial
	}
	return StatusComplete
}

// Summary is the list view of a stored job.
type Summary struct {
	ID         string    `json:"id"`
	Source     string    `json:"source,omitempty"`
	Tone       string    `json:"tone"`
	BigIdea    string    `json:"big_idea"`
	Status     Status    `json:"status"`
	ErrorCount int       `json:"error_count"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	StoredAt   time.Time `json:"stored_at"`
	URL        string    `json:"url"`
}

// Job is a stored job with its full result document.
type Job struct {
	Summary
	Stages []pipeline.StageSummary `json:"stages"`
	Result json.RawMessage         `json:"result"`
}

// Decode unmarshals the stored result. Stage payloads come back as generic
// JSON values.
func (j *Job) Decode() (*pipeline.Result, error) {
	var result pipeline.Result
	if err := json.Unmarshal(j.Result, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListFilter narrows List results.
type ListFilter struct {
	Status Status
	// Limit caps the number of rows; zero means DefaultListLimit.
	Limit int
}

// DefaultListLimit is used when a filter does not set a limit.
const DefaultListLimit = 50

// HealthSummary aggregates stored job counts.
type HealthSummary struct {
	Total    int `json:"total"`
	Complete int `json:"complete"`
	Partial  int `json:"partial"`
}

// DatabaseHealth captures diagnostic information about the job database.
type DatabaseHealth struct {
	DBPath           string `json:"db_path"`
	DatabaseExists   bool   `json:"database_exists"`
	DatabaseReadable bool   `json:"database_readable"`
	SchemaVersion    int    `json:"schema_version"`
	IntegrityCheck   bool   `json:"integrity_check"`
	TotalJobs        int    `json:"total_jobs"`
	Error            string `json:"error,omitempty"`
}
