package taskqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/yourusername/relay/internal/connstate"
)

func newConn(fd int) *connstate.Connection {
	return connstate.New(fd, "127.0.0.1:0", 64, 64)
}

func TestAppendTakeFIFO(t *testing.T) {
	q := New(4)
	for i := 0; i < 3; i++ {
		if !q.Append(newConn(i)) {
			t.Fatalf("Append(%d) failed", i)
		}
	}
	for i := 0; i < 3; i++ {
		c := q.Take()
		if c.FD != i {
			t.Fatalf("Take() FD = %d, want %d", c.FD, i)
		}
	}
}

func TestAppendFailsWhenFull(t *testing.T) {
	q := New(2)
	if !q.Append(newConn(1)) || !q.Append(newConn(2)) {
		t.Fatal("expected first two appends to succeed")
	}
	if q.Append(newConn(3)) {
		t.Fatal("expected Append to fail once queue is at capacity")
	}
	q.Take()
	if !q.Append(newConn(4)) {
		t.Fatal("expected Append to succeed after a Take freed a slot")
	}
}

func TestTakeBlocksUntilAppend(t *testing.T) {
	q := New(1)
	done := make(chan *connstate.Connection, 1)
	go func() {
		done <- q.Take()
	}()

	select {
	case <-done:
		t.Fatal("Take() returned before any item was appended")
	case <-time.After(20 * time.Millisecond):
	}

	q.Append(newConn(42))
	select {
	case c := <-done:
		if c.FD != 42 {
			t.Fatalf("Take() FD = %d, want 42", c.FD)
		}
	case <-time.After(time.Second):
		t.Fatal("Take() did not unblock after Append")
	}
}

func TestConcurrentProducersConsumers(t *testing.T) {
	q := New(16)
	const n = 200

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			for !q.Append(newConn(i)) {
			}
		}
	}()

	// Consumers stop once all n items are seen, or when ctx times out so a
	// lost item fails the count below instead of hanging the test.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	seen := 0
	var mu sync.Mutex
	var consumers sync.WaitGroup
	for w := 0; w < 4; w++ {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			for {
				c, ok := q.TakeContext(ctx)
				if !ok {
					return
				}
				_ = c
				mu.Lock()
				seen++
				done := seen >= n
				mu.Unlock()
				if done {
					cancel()
					return
				}
			}
		}()
	}

	wg.Wait()
	consumers.Wait()

	mu.Lock()
	defer mu.Unlock()
	if seen != n {
		t.Fatalf("consumed %d items, want %d", seen, n)
	}
}

func TestTakeContextUnblocksOnCancel(t *testing.T) {
	q := New(1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool, 1)
	go func() {
		_, ok := q.TakeContext(ctx)
		done <- ok
	}()

	select {
	case <-done:
		t.Fatal("TakeContext returned before cancellation or an append")
	case <-time.After(20 * time.Millisecond):
	}

	cancel()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("TakeContext reported ok=true after cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("TakeContext did not unblock after ctx was cancelled")
	}
}

func TestTakeContextReturnsQueuedItem(t *testing.T) {
	q := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q.Append(newConn(7))
	conn, ok := q.TakeContext(ctx)
	if !ok {
		t.Fatal("TakeContext reported ok=false for a non-cancelled context with a queued item")
	}
	if conn.FD != 7 {
		t.Fatalf("TakeContext FD = %d, want 7", conn.FD)
	}
}
