package journal

import (
	"context"
	"log/slog"

	"sdpublish/internal/logging"
	"sdpublish/internal/publish"
)

// Recorder writes pipeline events for one run into the journal. Write
// failures are logged and never interrupt publishing.
type Recorder struct {
	store  *Store
	runID  string
	logger *slog.Logger
}

// NewRecorder returns an observer that records events under runID.
func NewRecorder(store *Store, runID string, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:  store,
		runID:  runID,
		logger: logging.NewComponentLogger(logger, "journal"),
	}
}

func (r *Recorder) ItemSubmitted(ctx context.Context, job publish.PendingJob) {
	r.check(ctx, r.store.RecordSubmitted(context.WithoutCancel(ctx), r.runID, job))
}

func (r *Recorder) ItemFailed(ctx context.Context, item publish.FailedItem) {
	r.check(ctx, r.store.RecordFailed(context.WithoutCancel(ctx), r.runID, item))
}

func (r *Recorder) ItemSucceeded(ctx context.Context, item publish.SucceededItem) {
	r.check(ctx, r.store.RecordSucceeded(context.WithoutCancel(ctx), r.runID, item))
}

func (r *Recorder) check(ctx context.Context, err error) {
	if err == nil {
		return
	}
	logging.WarnWithContext(logging.WithContext(ctx, r.logger), "journal write failed; run history may be incomplete", "journal_write_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the state directory is writable"),
		logging.String(logging.FieldImpact, "retry may not see this item's latest state"),
	)
}

var _ publish.Observer = (*Recorder)(nil)
