// Package refresh provides a coalescing wake-up signal between event
// producers and a render loop.
package refresh

import "context"

// Queue holds at most one pending refresh request. Requests made while
// one is pending are merged into it.
type Queue struct {
	ch chan struct{}
}

// New creates an empty queue
func New() *Queue {
	return &Queue{ch: make(chan struct{}, 1)}
}

// Notify requests a refresh. It never blocks.
func (q *Queue) Notify() {
	select {
	case q.ch <- struct{}{}:
	default:
	}
}

// Wait blocks until a refresh is pending and consumes it
func (q *Queue) Wait(ctx context.Context) error {
	select {
	case <-q.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending reports whether a refresh is waiting
func (q *Queue) Pending() bool {
	return len(q.ch) > 0
}

// C exposes the underlying channel for use in select statements.
// Receiving from it consumes the pending refresh.
func (q *Queue) C() <-chan struct{} {
	return q.ch
}
