package pipeline

import "github.com/named-data/ndnc/std/types/lockfree"

// RequestQueue is the multi-producer, single-consumer admission queue
// between worker goroutines and the dispatcher. Workers call Push
// freely from any goroutine; only the dispatcher ever calls
// DrainUpTo/Notify, matching the PIT's single-writer ownership.
type RequestQueue struct {
	q *lockfree.YiQueue[*PendingInterest]
}

// NewRequestQueue constructs an empty RequestQueue.
func NewRequestQueue() *RequestQueue {
	return &RequestQueue{q: lockfree.NewYiQueue[*PendingInterest]()}
}

// Push enqueues a not-yet-expressed request. Safe for concurrent use by
// any number of worker goroutines.
func (r *RequestQueue) Push(pi *PendingInterest) {
	r.q.Push(pi)
}

// Notify is readable whenever the queue transitions from empty to
// non-empty, letting the dispatcher block without polling.
func (r *RequestQueue) Notify() <-chan struct{} {
	return r.q.Notify
}

// DrainUpTo pops at most n pending requests in FIFO order. It is used by
// the dispatcher to admit only as many new Interests as the fixed
// window currently has room for.
func (r *RequestQueue) DrainUpTo(n int) []*PendingInterest {
	if n <= 0 {
		return nil
	}
	out := make([]*PendingInterest, 0, n)
	for len(out) < n {
		pi, ok := r.q.Pop()
		if !ok {
			break
		}
		out = append(out, pi)
	}
	return out
}
