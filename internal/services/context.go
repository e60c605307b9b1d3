package services

import "context"

type contextKey string

const (
	runIDKey    contextKey = "run_id"
	artifactKey contextKey = "artifact"
	jobIDKey    contextKey = "job_id"
	workerKey   contextKey = "worker"
)

// WithRunID annotates context with the publishing run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the publishing run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithArtifact annotates context with the artifact path being processed.
func WithArtifact(ctx context.Context, path string) context.Context {
	if path == "" {
		return ctx
	}
	return context.WithValue(ctx, artifactKey, path)
}

// ArtifactFromContext returns the artifact path if present.
func ArtifactFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(artifactKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithJobID annotates context with the remote job identifier.
func WithJobID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, jobIDKey, id)
}

// JobIDFromContext returns the remote job identifier if present.
func JobIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(jobIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithWorker annotates context with the 1-based worker number.
func WithWorker(ctx context.Context, worker int) context.Context {
	if worker <= 0 {
		return ctx
	}
	return context.WithValue(ctx, workerKey, worker)
}

// WorkerFromContext extracts the worker number if present.
func WorkerFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(workerKey).(int)
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}
