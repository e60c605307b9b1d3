package logs

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Entry is one decoded line of a run log.
type Entry struct {
	Time      time.Time
	Level     string
	Message   string
	Component string
	Artifact  string
	JobID     string
	Reason    string
	Error     string
}

type rawEntry struct {
	TS        string `json:"ts"`
	Level     string `json:"level"`
	Msg       string `json:"msg"`
	Component string `json:"component"`
	Artifact  string `json:"artifact"`
	JobID     string `json:"job_id"`
	Reason    string `json:"reason"`
	Error     string `json:"error"`
}

// ParseEntry decodes a JSON log line. Lines that are not JSON objects
// return false.
func ParseEntry(line string) (Entry, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return Entry{}, false
	}
	var raw rawEntry
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Entry{}, false
	}
	entry := Entry{
		Level:     strings.ToLower(raw.Level),
		Message:   raw.Msg,
		Component: raw.Component,
		Artifact:  raw.Artifact,
		JobID:     raw.JobID,
		Reason:    raw.Reason,
		Error:     raw.Error,
	}
	if ts, err := time.Parse(time.RFC3339, raw.TS); err == nil {
		entry.Time = ts
	}
	return entry, true
}

// Format renders the entry on one line for terminal output.
func (e Entry) Format() string {
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.Local().Format("15:04:05"))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s ", strings.ToUpper(e.Level))
	if e.Component != "" {
		b.WriteString(e.Component)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Artifact != "" {
		fmt.Fprintf(&b, " artifact=%s", filepath.Base(e.Artifact))
	}
	if e.JobID != "" {
		fmt.Fprintf(&b, " job=%s", e.JobID)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, " reason=%s", e.Reason)
	}
	if e.Error != "" {
		fmt.Fprintf(&b, " error=%q", e.Error)
	}
	return b.String()
}

// FormatLines renders raw log lines, passing through lines that are not JSON.
func FormatLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if entry, ok := ParseEntry(line); ok {
			out = append(out, entry.Format())
			continue
		}
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}
