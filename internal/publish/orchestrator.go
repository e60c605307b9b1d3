package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sdpublish/internal/logging"
	"sdpublish/internal/services"
)

// DefaultWorkers is the worker count used when Options.Workers is zero.
const DefaultWorkers = 2

// Options configures a run.
type Options struct {
	Workers int
	Tracker TrackerOptions
	// RunID identifies the run in logs and the journal. A random UUID is
	// generated when empty.
	RunID string
}

// OrchestratorOption configures optional Orchestrator behavior.
type OrchestratorOption func(*Orchestrator)

// WithObserver registers an observer for item outcomes.
func WithObserver(observer Observer) OrchestratorOption {
	return func(o *Orchestrator) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// WithClock overrides the clock used for report timestamps.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// Orchestrator wires the queue, pool and tracker into a single run.
type Orchestrator struct {
	uploader  Uploader
	submitter Submitter
	poller    Poller
	opts      Options
	logger    *slog.Logger
	observer  Observer
	now       func() time.Time
}

// NewOrchestrator constructs an orchestrator around the three remote
// operations.
func NewOrchestrator(uploader Uploader, submitter Submitter, poller Poller, opts Options, logger *slog.Logger, extra ...OrchestratorOption) *Orchestrator {
	if opts.Workers == 0 {
		opts.Workers = DefaultWorkers
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	o := &Orchestrator{
		uploader:  uploader,
		submitter: submitter,
		poller:    poller,
		opts:      opts,
		logger:    logger,
		observer:  nopObserver{},
		now:       time.Now,
	}
	for _, opt := range extra {
		opt(o)
	}
	return o
}

// Run publishes items and returns a report that classifies each of them
// exactly once. Item failures are part of the report; an error is returned
// only when the run could not be set up.
func (o *Orchestrator) Run(ctx context.Context, items []WorkItem) (*Report, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	if o.poller == nil {
		return nil, errors.New("poller is required")
	}
	runID := o.opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, o.logger)

	report := &Report{RunID: runID, StartedAt: o.now()}

	queue := NewWorkQueue()
	for _, item := range items {
		if err := queue.Enqueue(item); err != nil {
			return nil, fmt.Errorf("enqueue %s: %w", item, err)
		}
	}
	queue.Close()

	results := &Results{}
	pool, err := startPool(ctx, o.opts.Workers, queue, o.uploader, o.submitter, results, o.observer, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("publishing started",
		logging.Int("items", len(items)),
		logging.Int("workers", o.opts.Workers),
	)

	queue.AwaitDrained()
	report.WorkerExits = pool.Wait()

	pending := results.Pending()
	failed := results.Failed()
	logger.Info("submission complete",
		logging.Int("submitted", len(pending)),
		logging.Int("failed", len(failed)),
	)

	tracker := NewTracker(o.poller, o.opts.Tracker, logger)
	tracker.observer = o.observer
	resolved := tracker.Resolve(ctx, pending)

	report.Succeeded = resolved.Succeeded
	report.Failed = append(failed, resolved.Failed...)
	report.Rounds = resolved.Rounds
	report.FinishedAt = o.now()
	report.sortByItem()

	if report.Total() != len(items) {
		logging.ErrorWithContext(logger, "report does not account for every item", "report_incomplete",
			logging.Int("items", len(items)),
			logging.Int("classified", report.Total()),
		)
	}
	logger.Info("publishing finished",
		logging.Int("succeeded", len(report.Succeeded)),
		logging.Int("failed", len(report.Failed)),
		logging.Int("rounds", report.Rounds),
		logging.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}
