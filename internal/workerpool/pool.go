// Package workerpool implements the fixed worker pool described in spec
// §4.8: N goroutines that dequeue a connection, run the parser and response
// builder, and hand the connection back to the reactor for the write (or
// close it on unrecoverable failure).
package workerpool

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/yourusername/relay/internal/connstate"
	"github.com/yourusername/relay/internal/fsresolve"
	"github.com/yourusername/relay/internal/httpparse"
	"github.com/yourusername/relay/internal/respbuild"
	"github.com/yourusername/relay/internal/taskqueue"
)

// Rearmer is the subset of the reactor a worker needs. A worker never
// touches the readiness multiplexer directly except through this interface
// (spec §4.8: "Workers... never call accept") and never performs blocking
// socket I/O itself.
type Rearmer interface {
	// RearmRead re-arms fd for edge-triggered, one-shot read readiness.
	RearmRead(fd int) error
	// RearmWrite re-arms fd for edge-triggered, one-shot write readiness.
	RearmWrite(fd int) error
	// CloseConn unregisters and closes a connection's socket, releasing
	// any mmap first.
	CloseConn(c *connstate.Connection)
}

// Pool runs Config.WorkerCount worker goroutines against a shared queue.
type Pool struct {
	queue   *taskqueue.Queue
	rearm   Rearmer
	docRoot string
	workers int
	verbose bool

	group *errgroup.Group
	stop  context.CancelFunc
}

// New builds a Pool. Start must be called to launch the workers.
func New(queue *taskqueue.Queue, rearm Rearmer, docRoot string, workers int, verbose bool) *Pool {
	return &Pool{
		queue:   queue,
		rearm:   rearm,
		docRoot: docRoot,
		workers: workers,
		verbose: verbose,
	}
}

// Start launches the fixed worker goroutines, detached from any join
// point (spec §4.8) except the internal errgroup used to unwind them
// cleanly on Stop.
func (p *Pool) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.stop = cancel
	g, ctx := errgroup.WithContext(ctx)
	p.group = g

	for i := 0; i < p.workers; i++ {
		id := i
		g.Go(func() error {
			p.run(ctx, id)
			return nil
		})
	}
}

// Stop signals all workers to exit after their current connection and
// waits for them to return.
func (p *Pool) Stop() {
	if p.stop != nil {
		p.stop()
	}
	if p.group != nil {
		_ = p.group.Wait()
	}
}

func (p *Pool) run(ctx context.Context, id int) {
	for {
		conn, ok := p.queue.TakeContext(ctx)
		if !ok {
			return
		}
		p.handle(conn)
	}
}

// handle runs the parser and, for terminal results, the response builder
// for a single dequeued connection, then returns custody to the reactor
// (spec §4.8 steps 2-5).
func (p *Pool) handle(conn *connstate.Connection) {
	result := httpparse.Parse(conn)

	if result == httpparse.NoRequest {
		if err := p.rearm.RearmRead(conn.FD); err != nil && p.verbose {
			log.Printf("relay: worker: rearm read fd=%d: %v", conn.FD, err)
		}
		return
	}

	if result == httpparse.GetRequest {
		result = fsresolve.Resolve(conn, p.docRoot)
	}

	if !respbuild.Build(conn, result) {
		if p.verbose {
			log.Printf("relay: worker: response overflowed write buffer, closing fd=%d", conn.FD)
		}
		respbuild.Discard(conn)
		p.rearm.CloseConn(conn)
		return
	}

	if err := p.rearm.RearmWrite(conn.FD); err != nil {
		if p.verbose {
			log.Printf("relay: worker: rearm write fd=%d: %v", conn.FD, err)
		}
		respbuild.Discard(conn)
		p.rearm.CloseConn(conn)
	}
}
