package publish

import "sync"

// WorkQueue is a FIFO of items shared by one producer and many workers. It
// tracks how many items have been enqueued and how many were marked done so
// the producer can wait for every item to be fully processed, not merely
// dequeued.
type WorkQueue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    []WorkItem
	closed   bool
	enqueued int
	done     int
}

// NewWorkQueue returns an empty, open queue.
func NewWorkQueue() *WorkQueue {
	q := &WorkQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends an item. It fails with ErrQueueClosed after Close.
func (q *WorkQueue) Enqueue(item WorkItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.items = append(q.items, item)
	q.enqueued++
	q.cond.Broadcast()
	return nil
}

// Close signals that no further items will be enqueued. Calling it more than
// once is harmless.
func (q *WorkQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// Dequeue blocks until an item is available. The boolean is false only when
// the queue is both empty and closed.
func (q *WorkQueue) Dequeue() (WorkItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return "", false
	}
	item := q.items[0]
	q.items[0] = ""
	q.items = q.items[1:]
	return item, true
}

// MarkDone records that one dequeued item has been fully processed.
func (q *WorkQueue) MarkDone() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.done >= q.enqueued {
		panic("publish: MarkDone called more often than Enqueue")
	}
	q.done++
	q.cond.Broadcast()
}

// AwaitDrained blocks until the queue is closed and every enqueued item was
// marked done. An empty queue with items still in flight does not count.
func (q *WorkQueue) AwaitDrained() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for !q.closed || q.done < q.enqueued {
		q.cond.Wait()
	}
}

// Len returns the number of items waiting to be dequeued.
func (q *WorkQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Outstanding returns the number of enqueued items not yet marked done.
func (q *WorkQueue) Outstanding() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.enqueued - q.done
}
