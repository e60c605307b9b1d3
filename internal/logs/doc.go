// Package logs reads the per-run JSON log files written by publishing runs.
//
// Tail returns the last lines of a file or the lines appended after an
// offset, optionally waiting for new output so `sdpublish show --log
// --follow` can watch a run in progress. ParseEntry decodes one JSON line
// into the fields the CLI prints.
package logs
