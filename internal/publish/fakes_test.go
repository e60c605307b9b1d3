package publish

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"sdpublish/internal/services"
)

// fakeRemote implements Uploader, Submitter and Poller against in-memory
// scripts keyed by item path.
type fakeRemote struct {
	uploadDelay time.Duration
	uploadErr   map[string]error
	submitErr   map[string]error
	panicOn     map[string]bool
	// states scripts the job status sequence per item; the last entry repeats.
	states        map[string][]JobState
	defaultStates []JobState
	pollErrs      map[string]int

	mu       sync.Mutex
	uploads  []string
	submits  []string
	queries  map[string]int
	seq      int64
	lastSubm int64
	firstQry int64

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		uploadErr:     map[string]error{},
		submitErr:     map[string]error{},
		panicOn:       map[string]bool{},
		states:        map[string][]JobState{},
		defaultStates: []JobState{JobStateSucceeded},
		pollErrs:      map[string]int{},
		queries:       map[string]int{},
	}
}

func (f *fakeRemote) Upload(ctx context.Context, path string) (string, error) {
	current := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.maxInFlight.Load()
		if current <= peak || f.maxInFlight.CompareAndSwap(peak, current) {
			break
		}
	}
	if f.uploadDelay > 0 {
		time.Sleep(f.uploadDelay)
	}
	if f.panicOn[path] {
		panic("boom: " + path)
	}
	f.mu.Lock()
	f.uploads = append(f.uploads, path)
	f.mu.Unlock()
	if err := f.uploadErr[path]; err != nil {
		return "", err
	}
	return "handle:" + path, nil
}

func (f *fakeRemote) Submit(ctx context.Context, handle string) (string, error) {
	path := strings.TrimPrefix(handle, "handle:")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, path)
	f.seq++
	f.lastSubm = f.seq
	if err := f.submitErr[path]; err != nil {
		return "", err
	}
	return "job:" + path, nil
}

func (f *fakeRemote) Query(ctx context.Context, jobID string) (JobState, error) {
	path := strings.TrimPrefix(jobID, "job:")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	if f.firstQry == 0 {
		f.firstQry = f.seq
	}
	f.queries[jobID]++
	n := f.queries[jobID]
	if n <= f.pollErrs[path] {
		return "", services.Wrap(services.ErrPoll, "poll", "status", jobID, context.DeadlineExceeded)
	}
	script, ok := f.states[path]
	if !ok {
		script = f.defaultStates
	}
	idx := n - f.pollErrs[path] - 1
	if idx >= len(script) {
		idx = len(script) - 1
	}
	return script[idx], nil
}

func (f *fakeRemote) queryCount(jobID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[jobID]
}

func (f *fakeRemote) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

type recordingObserver struct {
	mu        sync.Mutex
	submitted []PendingJob
	failed    []FailedItem
	succeeded []SucceededItem
}

func (r *recordingObserver) ItemSubmitted(_ context.Context, job PendingJob) {
	r.mu.Lock()
	r.submitted = append(r.submitted, job)
	r.mu.Unlock()
}

func (r *recordingObserver) ItemFailed(_ context.Context, item FailedItem) {
	r.mu.Lock()
	r.failed = append(r.failed, item)
	r.mu.Unlock()
}

func (r *recordingObserver) ItemSucceeded(_ context.Context, item SucceededItem) {
	r.mu.Lock()
	r.succeeded = append(r.succeeded, item)
	r.mu.Unlock()
}

func makeItems(n int) []WorkItem {
	items := make([]WorkItem, n)
	for i := range n {
		items[i] = WorkItem(fmt.Sprintf("/data/sd/%03d.sd", i))
	}
	return items
}
