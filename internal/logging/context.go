package logging

import (
	"context"
	"log/slog"

	"sdpublish/internal/services"
)

// Structured field keys shared by the console and JSON output.
const (
	FieldComponent = "component"
	FieldRunID     = "run_id"
	FieldArtifact  = "artifact"
	FieldJobID     = "job_id"
	FieldJobState  = "job_state"
	// FieldWorker holds the 1-based worker number.
	FieldWorker = "worker"
	FieldReason = "reason"
	// FieldEventType tags a line with a machine-friendly event name.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step an operator should take.
	FieldErrorHint = "error_hint"
	// FieldImpact describes what a warning means for the run.
	FieldImpact = "impact"
)

// ContextFields returns the run, worker, artifact and job attributes carried
// by ctx.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var fields []slog.Attr
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if worker, ok := services.WorkerFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldWorker, worker))
	}
	if path, ok := services.ArtifactFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldArtifact, path))
	}
	if job, ok := services.JobIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldJobID, job))
	}
	return fields
}

// WithContext returns logger tagged with the fields carried by ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
