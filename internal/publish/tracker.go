package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"sdpublish/internal/logging"
	"sdpublish/internal/services"
)

// DefaultPollInterval is the pause between polling rounds.
const DefaultPollInterval = 2 * time.Second

var errPollTimeout = errors.New("polling limit reached before the job finished")

// TrackerOptions bounds the polling loop. Zero MaxRounds or MaxWait means
// no limit on that axis.
type TrackerOptions struct {
	PollInterval time.Duration
	MaxRounds    int
	MaxWait      time.Duration
}

// TrackerResult is the post-submission classification of a pending set.
type TrackerResult struct {
	Succeeded []SucceededItem
	Failed    []FailedItem
	Rounds    int
}

// Tracker polls submitted jobs in rounds until each reaches a terminal state.
// The working set is private to the Resolve call.
type Tracker struct {
	poller   Poller
	opts     TrackerOptions
	logger   *slog.Logger
	observer Observer
	now      func() time.Time
	sleep    func(context.Context, time.Duration) error
}

// NewTracker builds a tracker around poller.
func NewTracker(poller Poller, opts TrackerOptions, logger *slog.Logger) *Tracker {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Tracker{
		poller:   poller,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "tracker"),
		observer: nopObserver{},
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Resolve queries every pending job once per round. Succeeded jobs move to
// the succeeded set, failed, cancelled and unrecognized ones to the failed
// set, and everything else is queried again after PollInterval. A failed
// status query keeps the job for the next round.
func (t *Tracker) Resolve(ctx context.Context, pending []PendingJob) TrackerResult {
	var result TrackerResult
	working := append([]PendingJob(nil), pending...)
	if len(working) == 0 {
		return result
	}
	started := t.now()

	for {
		result.Rounds++
		next := make([]PendingJob, 0, len(working))
		for _, job := range working {
			if ctx.Err() != nil {
				next = append(next, job)
				continue
			}
			if !t.check(ctx, job, &result) {
				next = append(next, job)
			}
		}
		working = next
		if len(working) == 0 {
			break
		}

		t.logger.Debug("polling round complete",
			logging.Int("round", result.Rounds),
			logging.Int("pending", len(working)),
		)

		if err := ctx.Err(); err != nil {
			t.abandon(ctx, working, ReasonCancelled, err, &result)
			break
		}
		if t.opts.MaxRounds > 0 && result.Rounds >= t.opts.MaxRounds {
			t.abandon(ctx, working, ReasonPollTimeout,
				fmt.Errorf("%w: %d rounds", errPollTimeout, result.Rounds), &result)
			break
		}
		if t.opts.MaxWait > 0 && t.now().Sub(started)+t.opts.PollInterval > t.opts.MaxWait {
			t.abandon(ctx, working, ReasonPollTimeout,
				fmt.Errorf("%w: %s", errPollTimeout, t.opts.MaxWait), &result)
			break
		}
		if err := t.sleep(ctx, t.opts.PollInterval); err != nil {
			t.abandon(ctx, working, ReasonCancelled, err, &result)
			break
		}
	}
	return result
}

// check queries one job and records a terminal outcome. It returns false when
// the job must stay in the working set.
func (t *Tracker) check(ctx context.Context, job PendingJob, result *TrackerResult) bool {
	jobCtx := services.WithJobID(services.WithArtifact(ctx, job.Item.String()), job.JobID)
	logger := logging.WithContext(jobCtx, t.logger)

	state, err := t.query(jobCtx, job.JobID)
	if errors.Is(err, ErrWorkerPanic) {
		failure := FailedItem{Item: job.Item, JobID: job.JobID, Reason: ReasonWorkerPanic, Err: err}
		result.Failed = append(result.Failed, failure)
		logging.ErrorWithContext(logger, "status query panicked; job marked failed", "tracker_panic",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the job on the server; it may still complete"),
		)
		t.observer.ItemFailed(jobCtx, failure)
		return true
	}
	if err != nil {
		logger.Warn("job status query failed; retrying next round",
			logging.Error(err),
			logging.Bool("transient", services.IsTransient(err)),
			logging.String(logging.FieldEventType, "job_poll_failed"),
			logging.String(logging.FieldErrorHint, "check server connectivity"),
		)
		return false
	}
	if !state.IsTerminal() {
		logger.Debug("job still running", logging.String(logging.FieldJobState, string(state)))
		return false
	}
	if state.IsSuccess() {
		done := SucceededItem{JobID: job.JobID, Item: job.Item}
		result.Succeeded = append(result.Succeeded, done)
		logger.Info("job succeeded")
		t.observer.ItemSucceeded(jobCtx, done)
		return true
	}

	reason := reasonForState(state)
	failure := FailedItem{
		Item:   job.Item,
		JobID:  job.JobID,
		Reason: reason,
		State:  state,
		Err:    jobStateError(state),
	}
	result.Failed = append(result.Failed, failure)
	logging.WarnWithContext(logger, "job finished without success", "job_"+string(reason),
		logging.String(logging.FieldJobState, string(state)),
		logging.String(logging.FieldErrorHint, "inspect the job messages on the server"),
		logging.String(logging.FieldImpact, "item will be reported as failed"),
	)
	t.observer.ItemFailed(jobCtx, failure)
	return true
}

// query calls the poller, turning a panic into an ErrWorkerPanic error.
func (t *Tracker) query(ctx context.Context, jobID string) (state JobState, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrWorkerPanic, r)
		}
	}()
	return t.poller.Query(ctx, jobID)
}

func (t *Tracker) abandon(ctx context.Context, jobs []PendingJob, reason Reason, err error, result *TrackerResult) {
	for _, job := range jobs {
		failure := FailedItem{
			Item:   job.Item,
			JobID:  job.JobID,
			Reason: reason,
			Err:    err,
		}
		result.Failed = append(result.Failed, failure)
		t.observer.ItemFailed(services.WithJobID(ctx, job.JobID), failure)
	}
	logging.WarnWithContext(t.logger, "stopped polling unfinished jobs", "poll_"+string(reason),
		logging.Int("jobs", len(jobs)),
		logging.Int("round", result.Rounds),
		logging.String(logging.FieldReason, string(reason)),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the jobs on the server; they may still complete"),
		logging.String(logging.FieldImpact, "unfinished items will be reported as failed"),
	)
}

func jobStateError(state JobState) error {
	if state == JobStateUnknown {
		return services.Wrap(services.ErrUnknownJobState, "poll", "", "server reported an unrecognized job status", nil)
	}
	return fmt.Errorf("job ended in state %s", state)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
