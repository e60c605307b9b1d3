// Package publish runs the concurrent batch-publishing pipeline.
//
// An Orchestrator loads every WorkItem into a WorkQueue, starts a fixed-size
// Pool of workers that upload each artifact and submit a processing job for
// it, waits for the queue to drain, and then hands the submitted jobs to a
// Tracker that polls them until each reaches a terminal state. The returned
// Report classifies every input item exactly once as succeeded or failed.
//
// The package only depends on the Uploader, Submitter and Poller interfaces;
// credentials, file discovery and report rendering live with the callers.
// Individual item failures are recorded in the report and never abort a run.
package publish
