package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sdpublish/internal/config"
)

const (
	runLogPrefix = "run-"
	runLogSuffix = ".log"
)

// RunLogPath returns the JSON log file for a publishing run.
func RunLogPath(cfg *config.Config, runID string) string {
	return filepath.Join(cfg.Paths.LogDir, runLogPrefix+runID+runLogSuffix)
}

// RunLog is the logger of one publishing run together with the JSON file
// it writes to.
type RunLog struct {
	Logger *slog.Logger
	// Path is empty when no log directory is configured.
	Path string
	file *os.File
}

// Close releases the run log file. Logger must not be used afterwards.
func (r *RunLog) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// NewRunLogger tees base into a JSON log file dedicated to one publishing
// run. The file always records debug level so failed items can be traced
// afterwards. Run logs older than logging.retention_days are removed.
func NewRunLogger(cfg *config.Config, base *slog.Logger, runID string) (*RunLog, error) {
	if base == nil {
		base = NewNop()
	}
	if cfg == nil || strings.TrimSpace(cfg.Paths.LogDir) == "" {
		return &RunLog{Logger: base}, nil
	}
	if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}
	path := RunLogPath(cfg, runID)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open run log %s: %w", path, err)
	}

	pruneRunLogs(base, cfg.Paths.LogDir, cfg.Logging.RetentionDays, path)

	return &RunLog{
		Logger: TeeLogger(base, newJSONHandler(file, slog.LevelDebug, false)),
		Path:   path,
		file:   file,
	}, nil
}

// pruneRunLogs removes run logs under dir last written before the retention
// window. keep is never removed. A non-positive retention keeps everything.
func pruneRunLogs(logger *slog.Logger, dir string, retentionDays int, keep string) {
	if retentionDays <= 0 {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, runLogPrefix) || !strings.HasSuffix(name, runLogSuffix) {
			continue
		}
		path := filepath.Join(dir, name)
		if path == keep {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "run log retention failed; file remains", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check file permissions on paths.log_dir"),
				String(FieldImpact, "old run log stays on disk"),
			)
			continue
		}
		logger.Debug("run log pruned", String("path", path))
	}
}
