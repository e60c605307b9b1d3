package logs_test

import (
	"strings"
	"testing"

	"sdpublish/internal/logs"
)

func TestParseEntry(t *testing.T) {
	line := `{"ts":"2026-03-01T12:00:00Z","level":"warn","msg":"item failed","component":"pool","artifact":"/data/sd/roads.sd","reason":"upload_failed","error":"upload: POST: boom"}`
	entry, ok := logs.ParseEntry(line)
	if !ok {
		t.Fatalf("expected entry to parse")
	}
	if entry.Level != "warn" || entry.Component != "pool" || entry.Reason != "upload_failed" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry.Time.IsZero() {
		t.Fatalf("expected timestamp")
	}
	formatted := entry.Format()
	for _, want := range []string{"WARN", "pool: item failed", "artifact=roads.sd", "reason=upload_failed", `error="upload: POST: boom"`} {
		if !strings.Contains(formatted, want) {
			t.Fatalf("expected %q in %q", want, formatted)
		}
	}
}

func TestFormatLinesPassesThroughPlainText(t *testing.T) {
	lines := logs.FormatLines([]string{"not json", "", `{"level":"info","msg":"publishing started"}`})
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %#v", lines)
	}
	if lines[0] != "not json" || !strings.Contains(lines[1], "INFO  publishing started") {
		t.Fatalf("unexpected lines %#v", lines)
	}
}
