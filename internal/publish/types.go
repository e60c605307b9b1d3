package publish

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"sdpublish/internal/services"
)

var (
	// ErrNoItems is returned by Run when there is nothing to publish.
	ErrNoItems = errors.New("no items to publish")
	// ErrQueueClosed is returned by Enqueue once the producer closed the queue.
	ErrQueueClosed = errors.New("work queue closed")
	// ErrWorkerPanic marks failures caused by a recovered worker panic.
	ErrWorkerPanic = errors.New("worker panic")
)

// WorkItem is the filesystem path of one artifact to publish.
type WorkItem string

func (w WorkItem) String() string { return string(w) }

// Uploader turns one local artifact into a remote content handle.
type Uploader interface {
	Upload(ctx context.Context, path string) (string, error)
}

// Submitter starts a remote processing job for an uploaded content handle.
type Submitter interface {
	Submit(ctx context.Context, handle string) (string, error)
}

// Poller reports the current lifecycle state of a remote job. Unrecognized
// remote states must be returned as JobStateUnknown, not as an error.
type Poller interface {
	Query(ctx context.Context, jobID string) (JobState, error)
}

// JobState is the lifecycle state of a remote job.
type JobState string

const (
	JobStateSubmitted JobState = "submitted"
	JobStateWaiting   JobState = "waiting"
	JobStateExecuting JobState = "executing"
	JobStateSucceeded JobState = "succeeded"
	JobStateFailed    JobState = "failed"
	JobStateCancelled JobState = "cancelled"
	JobStateUnknown   JobState = "unknown"
)

var jobStateAliases = map[string]JobState{
	"new":        JobStateSubmitted,
	"submitted":  JobStateSubmitted,
	"waiting":    JobStateWaiting,
	"executing":  JobStateExecuting,
	"succeeded":  JobStateSucceeded,
	"failed":     JobStateFailed,
	"cancelling": JobStateCancelled,
	"cancelled":  JobStateCancelled,
	"canceled":   JobStateCancelled,
}

// ParseJobState maps a remote status string such as "esriJobExecuting" to a
// JobState. Anything it does not recognize becomes JobStateUnknown, which is
// a terminal failure.
func ParseJobState(raw string) JobState {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.TrimPrefix(normalized, "esrijob")
	if state, ok := jobStateAliases[normalized]; ok {
		return state
	}
	return JobStateUnknown
}

// IsTerminal reports whether no further transitions are expected.
func (s JobState) IsTerminal() bool {
	switch s {
	case JobStateSubmitted, JobStateWaiting, JobStateExecuting:
		return false
	default:
		return true
	}
}

// IsSuccess reports whether the job finished successfully.
func (s JobState) IsSuccess() bool {
	return s == JobStateSucceeded
}

// Reason classifies why an item ended up in the failed set.
type Reason string

const (
	ReasonUpload       Reason = "upload_failed"
	ReasonSubmit       Reason = "submit_failed"
	ReasonJobFailed    Reason = "job_failed"
	ReasonJobCancelled Reason = "job_cancelled"
	ReasonUnknownState Reason = "unknown_state"
	ReasonPollTimeout  Reason = "poll_timeout"
	ReasonCancelled    Reason = "cancelled"
	ReasonWorkerPanic  Reason = "worker_panic"
)

var reasonDescriptions = map[Reason]string{
	ReasonUpload:       "upload failed",
	ReasonSubmit:       "submit failed",
	ReasonJobFailed:    "job failed",
	ReasonJobCancelled: "job cancelled",
	ReasonUnknownState: "job reported an unknown state",
	ReasonPollTimeout:  "job did not finish before the polling limit",
	ReasonCancelled:    "run cancelled",
	ReasonWorkerPanic:  "worker crashed",
}

// Description returns a short human-readable explanation.
func (r Reason) Description() string {
	if desc, ok := reasonDescriptions[r]; ok {
		return desc
	}
	return string(r)
}

// PreSubmission reports whether the failure happened before a job existed.
func (r Reason) PreSubmission() bool {
	switch r {
	case ReasonUpload, ReasonSubmit, ReasonWorkerPanic:
		return true
	default:
		return false
	}
}

// FailureReason classifies a pre-submission error. Cancellation wins over the
// stage marker so an interrupted run is not reported as a server fault.
func FailureReason(err error, fallback Reason) Reason {
	switch {
	case err == nil:
		return fallback
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCancelled
	case errors.Is(err, ErrWorkerPanic):
		return ReasonWorkerPanic
	case errors.Is(err, services.ErrUpload):
		return ReasonUpload
	case errors.Is(err, services.ErrSubmit):
		return ReasonSubmit
	default:
		return fallback
	}
}

func reasonForState(state JobState) Reason {
	switch state {
	case JobStateFailed:
		return ReasonJobFailed
	case JobStateCancelled:
		return ReasonJobCancelled
	default:
		return ReasonUnknownState
	}
}

// PendingJob is a submitted job that has not reached a terminal state yet.
type PendingJob struct {
	JobID string
	Item  WorkItem
}

// SucceededItem is an item whose job finished successfully.
type SucceededItem struct {
	JobID string
	Item  WorkItem
}

// FailedItem is an item that failed before or after submission. JobID is
// empty for pre-submission failures.
type FailedItem struct {
	Item   WorkItem
	JobID  string
	Reason Reason
	State  JobState
	Err    error
}

// Detail returns the error text, falling back to the reason description.
func (f FailedItem) Detail() string {
	if f.Err != nil {
		return f.Err.Error()
	}
	return f.Reason.Description()
}

// Observer receives item outcomes as they happen. Methods are called from
// multiple worker goroutines and must be safe for concurrent use.
type Observer interface {
	ItemSubmitted(ctx context.Context, job PendingJob)
	ItemFailed(ctx context.Context, item FailedItem)
	ItemSucceeded(ctx context.Context, item SucceededItem)
}

type nopObserver struct{}

func (nopObserver) ItemSubmitted(context.Context, PendingJob)    {}
func (nopObserver) ItemFailed(context.Context, FailedItem)       {}
func (nopObserver) ItemSucceeded(context.Context, SucceededItem) {}

// Report is the final classification of every item in a run.
type Report struct {
	RunID       string
	Succeeded   []SucceededItem
	Failed      []FailedItem
	Rounds      int
	WorkerExits []WorkerExit
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Total returns the number of classified items.
func (r *Report) Total() int {
	if r == nil {
		return 0
	}
	return len(r.Succeeded) + len(r.Failed)
}

// OK reports whether every item succeeded.
func (r *Report) OK() bool {
	return r != nil && len(r.Failed) == 0
}

// FailedItems returns the paths of all failed items, e.g. for a retry.
func (r *Report) FailedItems() []WorkItem {
	if r == nil {
		return nil
	}
	items := make([]WorkItem, 0, len(r.Failed))
	for _, f := range r.Failed {
		items = append(items, f.Item)
	}
	return items
}

// Panics returns the total number of recovered worker panics.
func (r *Report) Panics() int {
	if r == nil {
		return 0
	}
	total := 0
	for _, w := range r.WorkerExits {
		total += w.Panics
	}
	return total
}

func (r *Report) sortByItem() {
	sort.Slice(r.Succeeded, func(i, j int) bool { return r.Succeeded[i].Item < r.Succeeded[j].Item })
	sort.Slice(r.Failed, func(i, j int) bool { return r.Failed[i].Item < r.Failed[j].Item })
}
