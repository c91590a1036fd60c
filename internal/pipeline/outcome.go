package pipeline

import (
	"context"
	"time"
)

// Status is the terminal state of one stage run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusSkipped Status = "skipped"
)

// Outcome is the single terminal result of a stage run.
type Outcome struct {
	Step     string
	Mode     Mode
	Status   Status
	Payload  any
	Reason   string
	Duration time.Duration
}

// StageError is one entry of the ordered error list in the final result.
type StageError struct {
	Step    string `json:"step"`
	Message string `json:"message"`
}

// StageSummary records how each declared stage ended.
type StageSummary struct {
	Step       string `json:"step"`
	Mode       Mode   `json:"mode"`
	Status     Status `json:"status"`
	Reason     string `json:"reason,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
}

// Record is the durable store's receipt, or the error it returned.
type Record struct {
	ID    string `json:"id,omitempty"`
	URL   string `json:"url,omitempty"`
	Error string `json:"error,omitempty"`
}

// Result is the aggregate handed to the store and carried by the complete event.
type Result struct {
	JobID      string         `json:"job_id"`
	Source     string         `json:"source,omitempty"`
	Tone       string         `json:"tone"`
	Transcript string         `json:"transcript,omitempty"`
	Analysis   Analysis       `json:"analysis"`
	Outputs    map[string]any `json:"outputs"`
	Errors     []StageError   `json:"errors"`
	Stages     []StageSummary `json:"stages"`
	Record     *Record        `json:"record,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// Store persists a finished job.
type Store interface {
	Persist(ctx context.Context, result *Result) (Record, error)
}
