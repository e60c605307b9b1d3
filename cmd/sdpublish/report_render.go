package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"sdpublish/internal/journal"
	"sdpublish/internal/publish"
)

const maxDetailWidth = 60

func renderReport(w io.Writer, report *publish.Report, logPath string, colorize bool) {
	lines := renderSectionHeader("Run "+shortRunID(report.RunID), colorize)

	okKind := statusOK
	if len(report.Succeeded) == 0 {
		okKind = statusWarn
	}
	lines = append(lines, renderStatusLine("Succeeded", okKind,
		fmt.Sprintf("%d of %d", len(report.Succeeded), report.Total()), colorize))
	failKind := statusOK
	if len(report.Failed) > 0 {
		failKind = statusError
	}
	lines = append(lines, renderStatusLine("Failed", failKind, fmt.Sprintf("%d", len(report.Failed)), colorize))
	lines = append(lines, renderStatusLine("Polling rounds", statusInfo, fmt.Sprintf("%d", report.Rounds), colorize))
	if panics := report.Panics(); panics > 0 {
		lines = append(lines, renderStatusLine("Worker panics", statusWarn, fmt.Sprintf("%d recovered", panics), colorize))
	}
	lines = append(lines, renderStatusLine("Duration", statusInfo,
		formatDuration(report.FinishedAt.Sub(report.StartedAt)), colorize))
	if logPath != "" {
		lines = append(lines, renderStatusLine("Run log", statusInfo, logPath, colorize))
	}
	fmt.Fprintln(w, strings.Join(lines, "\n"))

	if len(report.Failed) == 0 {
		return
	}
	rows := make([][]string, 0, len(report.Failed))
	for _, f := range report.Failed {
		rows = append(rows, []string{
			f.Item.String(),
			humanLabel(string(f.Reason)),
			valueOrDash(f.JobID),
			truncate(f.Detail(), maxDetailWidth),
		})
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, renderTable([]string{"Artifact", "Reason", "Job", "Detail"}, rows, nil))
	fmt.Fprintf(w, "Retry the failed items with: sdpublish retry %s\n", shortRunID(report.RunID))
}

func renderRunSummary(w io.Writer, run journal.Run, colorize bool) {
	lines := renderSectionHeader("Run "+run.ID, colorize)
	lines = append(lines, renderStatusLine("Status", runStatusKind(run.Status), humanLabel(string(run.Status)), colorize))
	if run.ParentRunID != "" {
		lines = append(lines, renderStatusLine("Retry of", statusInfo, run.ParentRunID, colorize))
	}
	lines = append(lines,
		renderStatusLine("Input", statusInfo, valueOrDash(run.InputPath), colorize),
		renderStatusLine("Server", statusInfo, valueOrDash(run.ServerURL), colorize),
		renderStatusLine("Items", statusInfo,
			fmt.Sprintf("%d total, %d succeeded, %d failed", run.Total, run.Succeeded, run.Failed), colorize),
		renderStatusLine("Workers", statusInfo, fmt.Sprintf("%d", run.Workers), colorize),
		renderStatusLine("Started", statusInfo, formatTimestamp(run.StartedAt), colorize),
	)
	if !run.FinishedAt.IsZero() {
		lines = append(lines, renderStatusLine("Duration", statusInfo, formatDuration(run.Duration()), colorize))
	}
	if run.LogPath != "" {
		lines = append(lines, renderStatusLine("Run log", statusInfo, run.LogPath, colorize))
	}
	fmt.Fprintln(w, strings.Join(lines, "\n"))
}

func runStatusKind(status journal.RunStatus) statusKind {
	switch status {
	case journal.RunCompleted:
		return statusOK
	case journal.RunFailed:
		return statusError
	case journal.RunInterrupted:
		return statusWarn
	default:
		return statusInfo
	}
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func valueOrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func truncate(value string, width int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if len(runes) <= width {
		return value
	}
	return string(runes[:width-3]) + "..."
}
