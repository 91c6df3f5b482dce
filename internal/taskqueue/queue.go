// Package taskqueue implements the bounded FIFO task queue described in
// spec §4.7: a single mutex guarding a slice-backed FIFO of connection
// handles, paired with a counting semaphore equal to the number of
// enqueued items.
package taskqueue

import (
	"context"
	"sync"

	"github.com/yourusername/relay/internal/connstate"
)

// Queue is a thread-safe, bounded FIFO of *connstate.Connection. The
// reactor is the only producer; workers are the only consumers.
type Queue struct {
	mu       sync.Mutex
	items    []*connstate.Connection
	capacity int

	// sem is the counting semaphore: one token per enqueued item.
	// Append posts (non-blocking, capacity-bounded send); Take waits
	// (blocking receive). A stdlib channel is used rather than
	// golang.org/x/sync/semaphore.Weighted — see DESIGN.md for why that
	// primitive doesn't fit a post/wait signal.
	sem chan struct{}
}

// New creates a Queue that holds at most capacity items before Append
// starts failing (spec §4.7's "capacity bound applies to the entire
// server").
func New(capacity int) *Queue {
	return &Queue{
		capacity: capacity,
		sem:      make(chan struct{}, capacity),
	}
}

// Append enqueues conn. It returns false without blocking if the queue is
// at capacity (spec §4.7: "producer returns failure (not block) when full
// — the reactor drops the work").
//
// The spec's reference implementation uses "size > max_requests", which
// permits one extra element past the nominal capacity (spec §9 open
// question). This implementation treats the bound as hard (size >=
// capacity fails), the stricter of the two options the spec allows.
func (q *Queue) Append(conn *connstate.Connection) bool {
	q.mu.Lock()
	if len(q.items) >= q.capacity {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, conn)
	q.mu.Unlock()

	select {
	case q.sem <- struct{}{}:
	default:
		// Unreachable under the capacity check above, but never block a
		// producer on the semaphore: the item is already queued either way.
	}
	return true
}

// Take blocks until an item is available, then pops and returns it
// (spec §4.7). It cannot be cancelled; the worker pool uses TakeContext.
func (q *Queue) Take() *connstate.Connection {
	for {
		<-q.sem
		q.mu.Lock()
		if len(q.items) == 0 {
			q.mu.Unlock()
			continue
		}
		conn := q.items[0]
		q.items[0] = nil
		q.items = q.items[1:]
		q.mu.Unlock()
		return conn
	}
}

// TakeContext blocks until an item is available or ctx is done, whichever
// comes first. It returns ok=false if ctx was cancelled before an item
// could be taken — the selectable counterpart to Take a worker pool uses
// so Stop can't block forever waiting on an idle queue (spec §4.8's
// shutdown path, which Take alone can't serve since it has no way to
// observe cancellation while parked on q.sem).
func (q *Queue) TakeContext(ctx context.Context) (conn *connstate.Connection, ok bool) {
	for {
		select {
		case <-q.sem:
		case <-ctx.Done():
			return nil, false
		}
		q.mu.Lock()
		if len(q.items) == 0 {
			q.mu.Unlock()
			continue
		}
		conn = q.items[0]
		q.items[0] = nil
		q.items = q.items[1:]
		q.mu.Unlock()
		return conn, true
	}
}

// Len returns the current queue depth. Intended for diagnostics only.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
