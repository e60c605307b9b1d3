package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"sdpublish/internal/logging"
	"sdpublish/internal/services"
)

// WorkerExit summarizes what one worker did before it stopped.
type WorkerExit struct {
	Worker    int
	Processed int
	Failed    int
	Panics    int
}

// Pool is a fixed set of workers draining a WorkQueue. Every dequeued item
// is uploaded, then submitted, and the outcome lands in Results.
type Pool struct {
	queue     *WorkQueue
	uploader  Uploader
	submitter Submitter
	results   *Results
	observer  Observer
	logger    *slog.Logger

	wg    sync.WaitGroup
	exits []WorkerExit
}

// StartPool launches n workers consuming queue. Workers exit once the queue
// is closed and empty.
func StartPool(ctx context.Context, n int, queue *WorkQueue, uploader Uploader, submitter Submitter, results *Results, logger *slog.Logger) (*Pool, error) {
	return startPool(ctx, n, queue, uploader, submitter, results, nopObserver{}, logger)
}

func startPool(ctx context.Context, n int, queue *WorkQueue, uploader Uploader, submitter Submitter, results *Results, observer Observer, logger *slog.Logger) (*Pool, error) {
	switch {
	case n <= 0:
		return nil, fmt.Errorf("worker count must be positive, got %d", n)
	case queue == nil:
		return nil, errors.New("work queue is required")
	case uploader == nil:
		return nil, errors.New("uploader is required")
	case submitter == nil:
		return nil, errors.New("submitter is required")
	case results == nil:
		return nil, errors.New("results collector is required")
	}
	if observer == nil {
		observer = nopObserver{}
	}
	p := &Pool{
		queue:     queue,
		uploader:  uploader,
		submitter: submitter,
		results:   results,
		observer:  observer,
		logger:    logging.NewComponentLogger(logger, "pool"),
		exits:     make([]WorkerExit, n),
	}
	p.wg.Add(n)
	for i := range n {
		go p.run(ctx, i+1)
	}
	return p, nil
}

// Wait blocks until every worker has exited and returns their summaries
// ordered by worker number.
func (p *Pool) Wait() []WorkerExit {
	p.wg.Wait()
	return append([]WorkerExit(nil), p.exits...)
}

func (p *Pool) run(ctx context.Context, worker int) {
	defer p.wg.Done()
	exit := WorkerExit{Worker: worker}
	workerCtx := services.WithWorker(ctx, worker)
	for {
		item, ok := p.queue.Dequeue()
		if !ok {
			break
		}
		p.process(workerCtx, item, &exit)
	}
	p.exits[worker-1] = exit
	p.logger.Debug("worker exited",
		logging.Int(logging.FieldWorker, worker),
		logging.Int("processed", exit.Processed),
		logging.Int("failed", exit.Failed),
		logging.Int("panics", exit.Panics),
	)
}

func (p *Pool) process(ctx context.Context, item WorkItem, exit *WorkerExit) {
	defer p.queue.MarkDone()
	exit.Processed++

	itemCtx := services.WithArtifact(ctx, item.String())
	logger := logging.WithContext(itemCtx, p.logger)

	job, failure := p.attempt(itemCtx, logger, item)
	if failure != nil {
		exit.Failed++
		if failure.Reason == ReasonWorkerPanic {
			exit.Panics++
		}
		p.results.addFailed(*failure)
		p.logFailure(logger, *failure)
		p.observer.ItemFailed(itemCtx, *failure)
		return
	}
	p.results.addPending(job)
	logger.Info("job submitted", logging.String(logging.FieldJobID, job.JobID))
	p.observer.ItemSubmitted(services.WithJobID(itemCtx, job.JobID), job)
}

// attempt uploads and submits a single item. It converts panics raised by
// the clients into a failure so the worker keeps draining the queue.
func (p *Pool) attempt(ctx context.Context, logger *slog.Logger, item WorkItem) (job PendingJob, failure *FailedItem) {
	defer func() {
		if r := recover(); r != nil {
			failure = &FailedItem{
				Item:   item,
				Reason: ReasonWorkerPanic,
				Err:    fmt.Errorf("%w: %v", ErrWorkerPanic, r),
			}
		}
	}()

	if err := ctx.Err(); err != nil {
		return PendingJob{}, &FailedItem{Item: item, Reason: ReasonCancelled, Err: err}
	}

	handle, err := p.uploader.Upload(ctx, item.String())
	if err == nil && strings.TrimSpace(handle) == "" {
		err = errors.New("upload returned an empty content handle")
	}
	if err != nil {
		return PendingJob{}, p.stageFailure(item, services.ErrUpload, "upload", ReasonUpload, err)
	}
	logger.Debug("artifact uploaded", logging.String("handle", handle))

	jobID, err := p.submitter.Submit(ctx, handle)
	if err == nil && strings.TrimSpace(jobID) == "" {
		err = errors.New("submit returned an empty job id")
	}
	if err != nil {
		return PendingJob{}, p.stageFailure(item, services.ErrSubmit, "submit", ReasonSubmit, err)
	}
	return PendingJob{JobID: jobID, Item: item}, nil
}

func (p *Pool) stageFailure(item WorkItem, marker error, stage string, fallback Reason, err error) *FailedItem {
	if !errors.Is(err, marker) {
		err = services.Wrap(marker, stage, "", item.String(), err)
	}
	return &FailedItem{Item: item, Reason: FailureReason(err, fallback), Err: err}
}

func (p *Pool) logFailure(logger *slog.Logger, failure FailedItem) {
	attrs := []logging.Attr{
		logging.String(logging.FieldReason, string(failure.Reason)),
		logging.Error(failure.Err),
	}
	switch failure.Reason {
	case ReasonCancelled:
		logger.Info("item skipped; run cancelled", logging.Args(attrs...)...)
	case ReasonWorkerPanic:
		logging.ErrorWithContext(logger, "worker recovered from panic; item marked failed", "worker_panic",
			append(attrs, logging.String(logging.FieldErrorHint, "report this artifact; the worker continued with the next item"))...)
	default:
		logging.WarnWithContext(logger, "item failed before submission; excluded from polling", "item_"+string(failure.Reason),
			append(attrs,
				logging.String(logging.FieldErrorHint, "check server connectivity and the artifact, then retry the run"),
				logging.String(logging.FieldImpact, "item will be reported as failed"),
			)...)
	}
}
