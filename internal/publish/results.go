package publish

import "sync"

// Results collects worker outcomes. It is written by many workers and read
// by the orchestrator after the pool has exited.
type Results struct {
	mu      sync.Mutex
	pending []PendingJob
	failed  []FailedItem
}

func (r *Results) addPending(job PendingJob) {
	r.mu.Lock()
	r.pending = append(r.pending, job)
	r.mu.Unlock()
}

func (r *Results) addFailed(item FailedItem) {
	r.mu.Lock()
	r.failed = append(r.failed, item)
	r.mu.Unlock()
}

// Pending returns a copy of the submitted jobs.
func (r *Results) Pending() []PendingJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PendingJob(nil), r.pending...)
}

// Failed returns a copy of the pre-submission failures.
func (r *Results) Failed() []FailedItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]FailedItem(nil), r.failed...)
}
