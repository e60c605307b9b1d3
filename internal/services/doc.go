// Package services defines shared utilities consumed by the publishing
// pipeline and the ArcGIS integration.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, artifact paths, job IDs and worker
//     numbers for logging and tracing.
//   - Structured error markers plus the Wrap helper so upload, submit and
//     polling failures can be classified with errors.Is instead of string
//     matching.
//
// Use these helpers when wiring new remote calls so error classification and
// observability stay uniform across the pipeline.
package services
