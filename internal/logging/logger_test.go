package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sdpublish/internal/config"
	"sdpublish/internal/logging"
	"sdpublish/internal/services"
)

func TestConsoleLoggerOmitsSourceForInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "pool").Info("artifact uploaded", logging.String("item_id", "abc 1"))

	out := buf.String()
	if strings.Contains(out, ".go:") {
		t.Fatalf("expected no source information in info logs, got %q", out)
	}
	if !strings.Contains(out, "INFO pool: artifact uploaded") {
		t.Fatalf("expected component prefix, got %q", out)
	}
	if !strings.Contains(out, `item_id="abc 1"`) {
		t.Fatalf("expected quoted value, got %q", out)
	}
}

func TestConsoleLoggerIncludesSourceForDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message with source")
	if !strings.Contains(buf.String(), ".go:") {
		t.Fatalf("expected source information in debug logs, got %q", buf.String())
	}
}

func TestJSONLoggerRenamesKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("poll failed", logging.String(logging.FieldJobID, "j1"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, buf.String())
	}
	if record["level"] != "warn" || record["msg"] != "poll failed" || record["job_id"] != "j1" {
		t.Fatalf("unexpected record: %#v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key: %#v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-7")
	ctx = services.WithWorker(ctx, 2)
	ctx = services.WithArtifact(ctx, "/sd/roads.sd")
	ctx = services.WithJobID(ctx, "j99")

	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WithContext(ctx, logger).Info("contextual log")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	want := map[string]any{"run_id": "run-7", "worker": float64(2), "artifact": "/sd/roads.sd", "job_id": "j99"}
	for key, value := range want {
		if record[key] != value {
			t.Fatalf("field %s = %v, want %v", key, record[key], value)
		}
	}
}

func TestNewRunLoggerWritesFileAndPrunesOldLogs(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.RetentionDays = 7

	stale := filepath.Join(cfg.Paths.LogDir, "run-old.log")
	if err := os.WriteFile(stale, []byte("{}\n"), 0o644); err != nil {
		t.Fatalf("write stale log: %v", err)
	}
	old := time.Now().AddDate(0, 0, -30)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	unrelated := filepath.Join(cfg.Paths.LogDir, "notes.txt")
	if err := os.WriteFile(unrelated, []byte("keep"), 0o644); err != nil {
		t.Fatalf("write unrelated: %v", err)
	}
	if err := os.Chtimes(unrelated, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	runLog, err := logging.NewRunLogger(&cfg, logging.NewNop(), "abc")
	if err != nil {
		t.Fatalf("NewRunLogger returned error: %v", err)
	}
	path := runLog.Path
	if path != logging.RunLogPath(&cfg, "abc") {
		t.Fatalf("unexpected run log path %q", path)
	}
	runLog.Logger.Debug("debug detail", logging.String(logging.FieldArtifact, "x.sd"))
	if err := runLog.Close(); err != nil {
		t.Fatalf("close run log: %v", err)
	}
	if err := runLog.Close(); err != nil {
		t.Fatalf("second close should be a no-op: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read run log: %v", err)
	}
	if !strings.Contains(string(content), `"artifact":"x.sd"`) {
		t.Fatalf("expected debug record in run log, got %q", content)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale run log to be pruned, stat err=%v", err)
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Fatalf("expected unrelated file to remain: %v", err)
	}
}

func TestNewFromConfigHonoursFormatAndLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Format = "json"
	cfg.Logging.Level = "warn"

	var buf bytes.Buffer
	logger, err := logging.NewFromConfig(&cfg, &buf)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("info record should be filtered at warn level, got %q", out)
	}
	if !strings.Contains(out, `"msg":"kept"`) {
		t.Fatalf("expected JSON warn record, got %q", out)
	}
}

func TestNewRunLoggerWithoutLogDir(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = ""
	base := logging.NewNop()

	runLog, err := logging.NewRunLogger(&cfg, base, "abc")
	if err != nil {
		t.Fatalf("NewRunLogger returned error: %v", err)
	}
	if runLog.Path != "" || runLog.Logger != base {
		t.Fatalf("expected base logger without a file, got %+v", runLog)
	}
	if err := runLog.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
