package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"sdpublish/internal/journal"
	"sdpublish/internal/publish"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type reportItemJSON struct {
	Path   string `json:"path"`
	JobID  string `json:"job_id,omitempty"`
	Reason string `json:"reason,omitempty"`
	State  string `json:"state,omitempty"`
	Error  string `json:"error,omitempty"`
}

type reportJSON struct {
	RunID      string           `json:"run_id"`
	OK         bool             `json:"ok"`
	Total      int              `json:"total"`
	Rounds     int              `json:"rounds"`
	Panics     int              `json:"panics,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	LogPath    string           `json:"log_path,omitempty"`
	Succeeded  []reportItemJSON `json:"succeeded"`
	Failed     []reportItemJSON `json:"failed"`
}

func newReportJSON(report *publish.Report, logPath string) reportJSON {
	out := reportJSON{
		RunID:      report.RunID,
		OK:         report.OK(),
		Total:      report.Total(),
		Rounds:     report.Rounds,
		Panics:     report.Panics(),
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		LogPath:    logPath,
		Succeeded:  make([]reportItemJSON, 0, len(report.Succeeded)),
		Failed:     make([]reportItemJSON, 0, len(report.Failed)),
	}
	for _, s := range report.Succeeded {
		out.Succeeded = append(out.Succeeded, reportItemJSON{Path: s.Item.String(), JobID: s.JobID})
	}
	for _, f := range report.Failed {
		out.Failed = append(out.Failed, reportItemJSON{
			Path:   f.Item.String(),
			JobID:  f.JobID,
			Reason: string(f.Reason),
			State:  string(f.State),
			Error:  f.Detail(),
		})
	}
	return out
}

type runJSON struct {
	ID          string     `json:"id"`
	ParentRunID string     `json:"parent_run_id,omitempty"`
	InputPath   string     `json:"input_path"`
	ServerURL   string     `json:"server_url"`
	Workers     int        `json:"workers"`
	Status      string     `json:"status"`
	Total       int        `json:"total"`
	Succeeded   int        `json:"succeeded"`
	Failed      int        `json:"failed"`
	Rounds      int        `json:"rounds"`
	LogPath     string     `json:"log_path,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Items       []itemJSON `json:"items,omitempty"`
}

type itemJSON struct {
	Path   string `json:"path"`
	Status string `json:"status"`
	JobID  string `json:"job_id,omitempty"`
	Reason string `json:"reason,omitempty"`
	Error  string `json:"error,omitempty"`
}

func newRunJSON(run journal.Run, items []journal.Item) runJSON {
	out := runJSON{
		ID:          run.ID,
		ParentRunID: run.ParentRunID,
		InputPath:   run.InputPath,
		ServerURL:   run.ServerURL,
		Workers:     run.Workers,
		Status:      string(run.Status),
		Total:       run.Total,
		Succeeded:   run.Succeeded,
		Failed:      run.Failed,
		Rounds:      run.Rounds,
		LogPath:     run.LogPath,
		StartedAt:   run.StartedAt,
	}
	if !run.FinishedAt.IsZero() {
		finished := run.FinishedAt
		out.FinishedAt = &finished
	}
	for _, item := range items {
		out.Items = append(out.Items, itemJSON{
			Path:   item.Path,
			Status: string(item.Status),
			JobID:  item.JobID,
			Reason: item.Reason,
			Error:  item.ErrorMessage,
		})
	}
	return out
}
