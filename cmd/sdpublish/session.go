package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"sdpublish/internal/arcgis"
	"sdpublish/internal/config"
	"sdpublish/internal/journal"
	"sdpublish/internal/logging"
	"sdpublish/internal/preflight"
	"sdpublish/internal/publish"
	"sdpublish/internal/runlock"
)

// itemsFailedError is returned after a run whose report lists failures, so
// the process exits non-zero once the report has been printed.
type itemsFailedError struct {
	failed int
	total  int
	runID  string
}

func (e *itemsFailedError) Error() string {
	return fmt.Sprintf("%d of %d items failed (run %s)", e.failed, e.total, shortRunID(e.runID))
}

type publishFlags struct {
	workers       int
	pollInterval  time.Duration
	maxRounds     int
	maxWait       time.Duration
	skipPreflight bool
	jsonOutput    bool
}

func (f *publishFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "Concurrent upload/submit workers (default from config)")
	cmd.Flags().DurationVar(&f.pollInterval, "poll-interval", 0, "Delay between job status rounds (default from config)")
	cmd.Flags().IntVar(&f.maxRounds, "max-rounds", 0, "Stop polling after this many rounds (0 = unlimited)")
	cmd.Flags().DurationVar(&f.maxWait, "max-wait", 0, "Stop polling after this long (0 = unlimited)")
	cmd.Flags().BoolVar(&f.skipPreflight, "skip-preflight", false, "Skip local and server checks before publishing")
	cmd.Flags().BoolVar(&f.jsonOutput, "json", false, "Output the report as JSON")
}

func (f *publishFlags) options(cmd *cobra.Command, cfg *config.Config) publish.Options {
	opts := publish.Options{
		Workers: cfg.Publish.Workers,
		Tracker: publish.TrackerOptions{
			PollInterval: cfg.PollInterval(),
			MaxRounds:    cfg.Publish.MaxPollRounds,
			MaxWait:      cfg.MaxWait(),
		},
	}
	flags := cmd.Flags()
	if flags.Changed("workers") {
		opts.Workers = f.workers
	}
	if flags.Changed("poll-interval") {
		opts.Tracker.PollInterval = f.pollInterval
	}
	if flags.Changed("max-rounds") {
		opts.Tracker.MaxRounds = f.maxRounds
	}
	if flags.Changed("max-wait") {
		opts.Tracker.MaxWait = f.maxWait
	}
	return opts
}

func (f *publishFlags) validate(opts publish.Options) error {
	switch {
	case opts.Workers <= 0:
		return errors.New("--workers must be positive")
	case opts.Tracker.PollInterval <= 0:
		return errors.New("--poll-interval must be positive")
	case opts.Tracker.MaxRounds < 0:
		return errors.New("--max-rounds must be >= 0")
	case opts.Tracker.MaxWait < 0:
		return errors.New("--max-wait must be >= 0")
	}
	return nil
}

// session holds the state directory lock and journal for one publishing
// command.
type session struct {
	cfg    *config.Config
	lock   *runlock.Lock
	store  *journal.Store
	http   *http.Client
	logger *slog.Logger
}

func openSession(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*session, error) {
	if err := cfg.ValidateServerURL(); err != nil {
		return nil, err
	}
	if err := cfg.ValidateCredentials(); err != nil {
		return nil, err
	}
	lock, err := runlock.Acquire(cfg.LockPath())
	if err != nil {
		return nil, err
	}
	store, err := journal.Open(cfg)
	if err != nil {
		_ = lock.Release()
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if n, err := store.MarkStaleRunsInterrupted(ctx); err != nil {
		logging.WarnWithContext(logger, "stale run cleanup failed", "journal_stale_cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "history may show finished runs as running"),
		)
	} else if n > 0 {
		logger.Info("marked stale runs interrupted", logging.Int64("runs", n))
	}
	return &session{
		cfg:    cfg,
		lock:   lock,
		store:  store,
		http:   arcgis.NewHTTPClient(cfg),
		logger: logger,
	}, nil
}

func (s *session) Close() {
	if s == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn("journal close failed", logging.Error(err))
	}
	if err := s.lock.Release(); err != nil {
		s.logger.Warn("lock release failed", logging.Error(err))
	}
}

// runPreflight runs the checks that gate a run. Authentication is left to the
// token acquisition that follows.
func (s *session) runPreflight(ctx context.Context, cmd *cobra.Command, input string) error {
	var results []preflight.Result
	if strings.TrimSpace(input) != "" {
		results = append(results, preflight.CheckInput(ctx, input, s.cfg.Publish.Extension))
	}
	results = append(results,
		preflight.CheckDirectoryAccess("State directory", s.cfg.Paths.StateDir),
		preflight.CheckDirectoryAccess("Log directory", s.cfg.Paths.LogDir),
		preflight.CheckServer(ctx, s.http, s.cfg.ServerContextURL()),
	)
	if preflight.AllPassed(results) {
		return nil
	}
	out := cmd.ErrOrStderr()
	colorize := shouldColorize(out)
	for _, line := range renderSectionHeader("Preflight", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, r := range results {
		fmt.Fprintln(out, renderStatusLine(r.Name, checkKind(r), r.Detail, colorize))
	}
	return errors.New("preflight checks failed (use --skip-preflight to bypass)")
}

type runRequest struct {
	input    string
	parentID string
	items    []publish.WorkItem
	opts     publish.Options
	json     bool
}

// publish authenticates, records the run and drives the pipeline. Item
// failures surface as *itemsFailedError after the report is written.
func (s *session) publish(ctx context.Context, cmd *cobra.Command, req runRequest) error {
	provider := arcgis.NewTokenProvider(s.cfg, s.http)
	token, err := provider.Token(ctx)
	if err != nil {
		return fmt.Errorf("acquire token: %w", err)
	}
	client, err := arcgis.NewClient(s.cfg.ServerContextURL(), token.Value,
		arcgis.WithHTTPClient(s.http),
		arcgis.WithReferer(s.cfg.Server.Referer),
	)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	runLog, err := logging.NewRunLogger(s.cfg, s.logger, runID)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := runLog.Close(); closeErr != nil {
			s.logger.Warn("run log close failed", logging.String("path", runLog.Path), logging.Error(closeErr))
		}
	}()
	logger, logPath := runLog.Logger, runLog.Path
	if !token.Expires.IsZero() {
		logger.Debug("token acquired", logging.String("expires", token.Expires.Format(time.RFC3339)))
	}

	req.opts.RunID = runID
	err = s.store.BeginRun(ctx, journal.Run{
		ID:          runID,
		ParentRunID: req.parentID,
		InputPath:   req.input,
		ServerURL:   s.cfg.ServerContextURL(),
		Workers:     req.opts.Workers,
		LogPath:     logPath,
		StartedAt:   time.Now(),
	}, req.items)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	orchestrator := publish.NewOrchestrator(client, client, client, req.opts, logger,
		publish.WithObserver(journal.NewRecorder(s.store, runID, logger)),
	)
	report, err := orchestrator.Run(ctx, req.items)
	if err != nil {
		if abortErr := s.store.AbortRun(context.WithoutCancel(ctx), runID); abortErr != nil {
			logger.Warn("journal abort failed", logging.Error(abortErr))
		}
		return err
	}

	interrupted := ctx.Err() != nil
	if err := s.store.FinishRun(context.WithoutCancel(ctx), report, interrupted); err != nil {
		logging.WarnWithContext(logger, "journal update failed", "journal_finish_failed",
			logging.String("run_id", runID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "history shows stale counts for this run"),
		)
	}

	if req.json {
		if err := writeJSON(cmd, newReportJSON(report, logPath)); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		renderReport(out, report, logPath, shouldColorize(out))
	}

	if interrupted {
		return ctx.Err()
	}
	if !report.OK() {
		return &itemsFailedError{failed: len(report.Failed), total: report.Total(), runID: runID}
	}
	return nil
}

func checkKind(r preflight.Result) statusKind {
	if r.Passed {
		return statusOK
	}
	return statusError
}
