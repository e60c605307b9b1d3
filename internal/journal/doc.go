// Package journal persists publishing runs and per-item outcomes in SQLite.
//
// Every run gets a row in runs and one row per artifact in run_items. Items
// move from queued to submitted to succeeded or failed as the pipeline
// reports them through a Recorder, so an interrupted run still leaves an
// accurate record of what reached the server. The CLI's history, show and
// retry commands read from here.
//
// The database lives at <state_dir>/journal.db and uses WAL mode with a busy
// timeout; writes retry briefly on SQLITE_BUSY.
package journal
