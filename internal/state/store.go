// Package state tracks pipeline runs in SQLite: one row per run, one row
// per stage execution with its input hash, row count, and outcome.
package state

import "time"

// RunStatus is the lifecycle status of a pipeline run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// StageStatus is the outcome of a single stage within a run.
type StageStatus string

const (
	StageStatusRunning   StageStatus = "running"
	StageStatusCompleted StageStatus = "completed"
	StageStatusFailed    StageStatus = "failed"
	StageStatusSkipped   StageStatus = "skipped"
)

// Run is one invocation of the pipeline.
type Run struct {
	ID          string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// StageRun is one stage execution inside a run.
type StageRun struct {
	ID         string
	RunID      string
	Stage      string
	Status     StageStatus
	InputHash  string
	RowsOut    int64
	DurationMS int64
	StartedAt  time.Time
	Error      string
}
