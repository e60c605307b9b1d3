package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"sdpublish/internal/publish"
)

// RecordSubmitted marks an item as submitted under jobID.
func (s *Store) RecordSubmitted(ctx context.Context, runID string, job publish.PendingJob) error {
	return s.updateItem(ctx, runID, job.Item, ItemSubmitted, job.JobID, "", "")
}

// RecordSucceeded marks an item as succeeded.
func (s *Store) RecordSucceeded(ctx context.Context, runID string, item publish.SucceededItem) error {
	return s.updateItem(ctx, runID, item.Item, ItemSucceeded, item.JobID, "", "")
}

// RecordFailed marks an item as failed with its reason and error detail.
func (s *Store) RecordFailed(ctx context.Context, runID string, item publish.FailedItem) error {
	return s.updateItem(ctx, runID, item.Item, ItemFailed, item.JobID, string(item.Reason), item.Detail())
}

func (s *Store) updateItem(ctx context.Context, runID string, path publish.WorkItem, status ItemStatus, jobID, reason, message string) error {
	_, err := s.exec(ctx,
		`INSERT INTO run_items (run_id, path, status, job_id, reason, error_message, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id, path) DO UPDATE SET
		   status = excluded.status,
		   job_id = COALESCE(excluded.job_id, run_items.job_id),
		   reason = excluded.reason,
		   error_message = excluded.error_message,
		   updated_at = excluded.updated_at`,
		runID,
		path.String(),
		status,
		nullString(jobID),
		nullString(reason),
		nullString(message),
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("record %s item %s: %w", status, path, err)
	}
	return nil
}

// ListItems returns every item of a run ordered by path.
func (s *Store) ListItems(ctx context.Context, runID string) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, path, status, job_id, reason, error_message, updated_at
		 FROM run_items WHERE run_id = ? ORDER BY path`, runID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			item       Item
			status     string
			jobID      sql.NullString
			reason     sql.NullString
			message    sql.NullString
			updatedRaw sql.NullString
		)
		if err := rows.Scan(&item.RunID, &item.Path, &status, &jobID, &reason, &message, &updatedRaw); err != nil {
			return nil, err
		}
		item.Status = ItemStatus(status)
		item.JobID = jobID.String
		item.Reason = reason.String
		item.ErrorMessage = message.String
		item.UpdatedAt = parseTime(updatedRaw)
		items = append(items, item)
	}
	return items, rows.Err()
}

// UnfinishedPaths returns the items of a run that did not succeed, including
// items an interrupted run never finished.
func (s *Store) UnfinishedPaths(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path FROM run_items WHERE run_id = ? AND status != ? ORDER BY path`,
		runID, ItemSucceeded)
	if err != nil {
		return nil, fmt.Errorf("list unfinished items: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, rows.Err()
}

// ItemCounts returns the number of items per status for a run.
func (s *Store) ItemCounts(ctx context.Context, runID string) (map[ItemStatus]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(1) FROM run_items WHERE run_id = ? GROUP BY status`, runID)
	if err != nil {
		return nil, fmt.Errorf("item counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[ItemStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[ItemStatus(status)] = count
	}
	return counts, rows.Err()
}
