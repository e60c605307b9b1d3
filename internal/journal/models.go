package journal

import (
	"errors"
	"time"
)

var (
	// ErrRunNotFound is returned when no run matches the requested id.
	ErrRunNotFound = errors.New("run not found")
	// ErrAmbiguousRun is returned when a run id prefix matches several runs.
	ErrAmbiguousRun = errors.New("run id prefix is ambiguous")
)

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

const (
	RunRunning     RunStatus = "running"
	RunCompleted   RunStatus = "completed"
	RunFailed      RunStatus = "failed"
	RunInterrupted RunStatus = "interrupted"
)

// ItemStatus is the recorded state of one artifact within a run.
type ItemStatus string

const (
	ItemQueued    ItemStatus = "queued"
	ItemSubmitted ItemStatus = "submitted"
	ItemSucceeded ItemStatus = "succeeded"
	ItemFailed    ItemStatus = "failed"
)

// Run is one recorded publishing run.
type Run struct {
	ID          string
	ParentRunID string
	InputPath   string
	ServerURL   string
	Workers     int
	Status      RunStatus
	Total       int
	Succeeded   int
	Failed      int
	Rounds      int
	LogPath     string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Duration returns how long the run took, or zero while it is running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Item is the recorded outcome of one artifact.
type Item struct {
	RunID        string
	Path         string
	Status       ItemStatus
	JobID        string
	Reason       string
	ErrorMessage string
	UpdatedAt    time.Time
}
