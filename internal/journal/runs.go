package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"sdpublish/internal/publish"
)

const runColumns = "id, parent_run_id, input_path, server_url, workers, status, total, succeeded, failed, rounds, log_path, started_at, finished_at"

// BeginRun records a new run and queues every item in a single transaction.
func (s *Store) BeginRun(ctx context.Context, run Run, items []publish.WorkItem) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run id is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	items = uniqueItems(items)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin run tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO runs (id, parent_run_id, input_path, server_url, workers, status, total, log_path, started_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID,
			nullString(run.ParentRunID),
			run.InputPath,
			run.ServerURL,
			run.Workers,
			RunRunning,
			len(items),
			nullString(run.LogPath),
			formatTime(run.StartedAt),
		); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO run_items (run_id, path, status, updated_at) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare item insert: %w", err)
		}
		defer stmt.Close()
		now := formatTime(run.StartedAt)
		for _, item := range items {
			if _, err := stmt.ExecContext(ctx, run.ID, item.String(), ItemQueued, now); err != nil {
				return fmt.Errorf("insert item %s: %w", item, err)
			}
		}
		return tx.Commit()
	})
}

// FinishRun stores the final counts of report and closes the run. A run
// whose context was cancelled is recorded as interrupted.
func (s *Store) FinishRun(ctx context.Context, report *publish.Report, interrupted bool) error {
	if report == nil {
		return errors.New("report is required")
	}
	status := RunCompleted
	switch {
	case interrupted:
		status = RunInterrupted
	case !report.OK():
		status = RunFailed
	}
	finished := report.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	res, err := s.exec(ctx,
		`UPDATE runs SET status = ?, succeeded = ?, failed = ?, rounds = ?, finished_at = ? WHERE id = ?`,
		status,
		len(report.Succeeded),
		len(report.Failed),
		report.Rounds,
		formatTime(finished),
		report.RunID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, report.RunID)
	}
	return nil
}

// AbortRun marks a run interrupted when it could not produce a report.
func (s *Store) AbortRun(ctx context.Context, runID string) error {
	_, err := s.exec(ctx,
		`UPDATE runs SET status = ?, finished_at = ? WHERE id = ? AND status = ?`,
		RunInterrupted, formatTime(time.Now()), runID, RunRunning)
	if err != nil {
		return fmt.Errorf("abort run: %w", err)
	}
	return nil
}

// MarkStaleRunsInterrupted closes runs left in the running state by a
// process that exited without finishing them. Callers must hold the run
// lock so no live run is affected.
func (s *Store) MarkStaleRunsInterrupted(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx,
		`UPDATE runs SET status = ?, finished_at = COALESCE(finished_at, ?) WHERE status = ?`,
		RunInterrupted, formatTime(time.Now()), RunRunning)
	if err != nil {
		return 0, fmt.Errorf("mark stale runs: %w", err)
	}
	return res.RowsAffected()
}

// GetRun returns the run whose id equals or uniquely starts with id.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrRunNotFound
	}
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if err == nil {
		return run, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE id LIKE ? ESCAPE '\\' ORDER BY started_at DESC LIMIT 2",
		escapeLike(id)+"%")
	if err != nil {
		return nil, fmt.Errorf("get run by prefix: %w", err)
	}
	defer rows.Close()
	matches, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousRun, id)
	}
}

// LatestRun returns the most recently started run.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	runs, err := s.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrRunNotFound
	}
	return &runs[0], nil
}

// ListRuns returns the newest runs first. A non-positive limit returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		parent      sql.NullString
		status      string
		logPath     sql.NullString
		startedRaw  sql.NullString
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&parent,
		&run.InputPath,
		&run.ServerURL,
		&run.Workers,
		&status,
		&run.Total,
		&run.Succeeded,
		&run.Failed,
		&run.Rounds,
		&logPath,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}
	run.ParentRunID = parent.String
	run.Status = RunStatus(status)
	run.LogPath = logPath.String
	run.StartedAt = parseTime(startedRaw)
	run.FinishedAt = parseTime(finishedRaw)
	return &run, nil
}

func uniqueItems(items []publish.WorkItem) []publish.WorkItem {
	seen := make(map[publish.WorkItem]struct{}, len(items))
	out := make([]publish.WorkItem, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
