// Package logging assembles structured slog loggers and formatting helpers used
// across sdpublish.
//
// It owns the configurable console/JSON handlers, the per-run JSON log file
// tee, and context-aware helpers so pipeline code can tag log lines with run
// IDs, worker numbers, artifact paths and job IDs. The package also provides
// a no-op logger for tests and wiring code that cannot fail.
package logging
