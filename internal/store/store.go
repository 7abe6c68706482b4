package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Run is one batch invocation: the input size, outcome and the
// recommendations that were written.
type Run struct {
	ID              uuid.UUID       `json:"run_id"`
	Source          string          `json:"source"`
	StartedAt       time.Time       `json:"started_at"`
	FinishedAt      time.Time       `json:"finished_at"`
	Success         bool            `json:"success"`
	Message         string          `json:"message"`
	TaskCount       int             `json:"task_count"`
	Recommendations json.RawMessage `json:"recommendations,omitempty"`
}

// Duration is the wall time spent on the run.
func (r *Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

type RunFilter struct {
	Success *bool
	Source  string
	Limit   int
	Offset  int
}

type RunStats struct {
	Total         int     `json:"total"`
	Succeeded     int     `json:"succeeded"`
	Failed        int     `json:"failed"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
}

// Store records batch run history.
type Store interface {
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error)
	GetRunStats(ctx context.Context) (*RunStats, error)
	Close() error
}
