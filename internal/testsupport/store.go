package testsupport

import (
	"context"
	"testing"

	"sdpublish/internal/config"
	"sdpublish/internal/journal"
	"sdpublish/internal/publish"
)

// MustOpenJournal opens a journal.Store for tests and registers cleanup.
func MustOpenJournal(t testing.TB, cfg *config.Config) *journal.Store {
	t.Helper()

	store, err := journal.Open(cfg)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// BeginRun records a running run over items for tests.
func BeginRun(t testing.TB, store *journal.Store, runID string, items ...publish.WorkItem) {
	t.Helper()

	run := journal.Run{ID: runID, InputPath: "/input", ServerURL: "https://gis.invalid/arcgis", Workers: 2}
	if err := store.BeginRun(context.Background(), run, items); err != nil {
		t.Fatalf("store.BeginRun: %v", err)
	}
}
