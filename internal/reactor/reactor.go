//go:build linux

// Package reactor implements the readiness multiplexer described in spec
// §4.1: a single thread owning the listening socket, the epoll instance,
// and the connection table, translating edge-triggered one-shot readiness
// events into dispatch decisions (spec §2 item 7, §5).
//
// This is Linux-only: edge-triggered one-shot readiness is an epoll
// concept (EPOLLET | EPOLLONESHOT) with no portable equivalent, the same
// restriction the raw-epoll reference server in this spec's retrieval pack
// carries.
package reactor

import (
	"errors"
	"log"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/yourusername/relay/internal/connstate"
	"github.com/yourusername/relay/internal/fsresolve"
	"github.com/yourusername/relay/internal/relayconf"
	"github.com/yourusername/relay/internal/taskqueue"
)

var (
	errBufferFull  = errors.New("reactor: read buffer full")
	errPeerClosed  = errors.New("reactor: peer closed connection")
	errTooManyConn = errors.New("reactor: MAX_FD reached")
)

// clientEdgeTriggered and listenerOneShot document the trigger-mode choice
// spec §4.1 pins: the listening socket is level-triggered (so an accept
// storm drains naturally) and never one-shot; client sockets are always
// edge-triggered and one-shot. The original C server this spec was
// distilled from exposes both as constructor flags; this redesign keeps
// only the combination spec.md recommends (SPEC_FULL.md §12).
const (
	listenerOneShot      = false
	clientEdgeTriggered  = true
	maxEventsPerWaitCall = 1024
)

// Reactor owns the epoll instance, the listening socket, and the
// connection table (spec §2 item 7).
type Reactor struct {
	cfg     relayconf.Config
	epfd    int
	listFD  int
	queue   *taskqueue.Queue

	mu    sync.Mutex
	conns map[int]*connstate.Connection

	userCount atomic.Int64
	closed    atomic.Bool
}

// New creates a Reactor bound to an already-normalized Config and queue.
// It does not listen yet; call ListenAndServe.
func New(cfg relayconf.Config, queue *taskqueue.Queue) *Reactor {
	return &Reactor{
		cfg:   cfg,
		queue: queue,
		conns: make(map[int]*connstate.Connection),
	}
}

// ListenAndServe creates the listening socket and epoll instance and runs
// the reactor loop until Close is called or an unrecoverable multiplexer
// error occurs (spec §6).
func (r *Reactor) ListenAndServe() error {
	listFD, err := newListener(r.cfg.Addr, r.cfg.ListenBacklog)
	if err != nil {
		return err
	}
	r.listFD = listFD

	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		unix.Close(listFD)
		return err
	}
	r.epfd = epfd

	// Listening socket: level-triggered, not one-shot (spec §4.1).
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, listFD, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(listFD),
	}); err != nil {
		unix.Close(epfd)
		unix.Close(listFD)
		return err
	}

	if r.cfg.Verbose {
		log.Printf("relay: listening on %s (docroot=%s, workers=%d)", r.cfg.Addr, r.cfg.DocRoot, r.cfg.WorkerCount)
	}

	return r.loop()
}

func (r *Reactor) loop() error {
	events := make([]unix.EpollEvent, maxEventsPerWaitCall)
	for !r.closed.Load() {
		n, err := unix.EpollWait(r.epfd, events, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if r.closed.Load() {
				// Close() closed epfd/listFD out from under a blocked
				// EpollWait; that's a deliberate shutdown, not a
				// multiplexer failure (spec §6: SIGINT/SIGTERM exit 0).
				return nil
			}
			return err
		}
		for i := 0; i < n; i++ {
			r.dispatch(events[i])
		}
	}
	return nil
}

func (r *Reactor) dispatch(ev unix.EpollEvent) {
	fd := int(ev.Fd)

	if fd == r.listFD {
		r.acceptLoop()
		return
	}

	conn := r.lookup(fd)
	if conn == nil {
		return // already closed by a worker; stale event
	}

	if ev.Events&(unix.EPOLLRDHUP|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
		r.CloseConn(conn)
		return
	}

	switch {
	case ev.Events&unix.EPOLLIN != 0:
		r.handleReadable(conn)
	case ev.Events&unix.EPOLLOUT != 0:
		r.handleWritable(conn)
	}
}

func (r *Reactor) acceptLoop() {
	for {
		fd, _, err := unix.Accept4(r.listFD, unix.SOCK_NONBLOCK)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			if r.cfg.Verbose {
				log.Printf("relay: accept: %v", err)
			}
			return
		}

		if int(r.userCount.Load()) >= r.cfg.MaxConnections {
			unix.Close(fd)
			continue
		}

		tuneAccepted(fd)
		peer := peerAddrString(fd)
		conn := connstate.New(fd, peer, r.cfg.ReadBufferSize, r.cfg.WriteBufferSize)

		if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
			Events: unix.EPOLLIN | unix.EPOLLRDHUP | unix.EPOLLET | unix.EPOLLONESHOT,
			Fd:     int32(fd),
		}); err != nil {
			unix.Close(fd)
			continue
		}

		r.mu.Lock()
		r.conns[fd] = conn
		r.mu.Unlock()
		r.userCount.Add(1)

		if r.cfg.Verbose {
			log.Printf("relay: accepted %s fd=%d", peer, fd)
		}
	}
}

func (r *Reactor) handleReadable(conn *connstate.Connection) {
	err := readConn(conn)
	switch err {
	case nil:
		if !r.queue.Append(conn) {
			if r.cfg.Verbose {
				log.Printf("relay: task queue full, dropping fd=%d", conn.FD)
			}
			r.CloseConn(conn)
		}
	case errBufferFull:
		r.CloseConn(conn)
	case errPeerClosed:
		r.CloseConn(conn)
	default:
		r.CloseConn(conn)
	}
}

func (r *Reactor) handleWritable(conn *connstate.Connection) {
	done, err := writeConn(conn)
	if err != nil {
		_ = fsresolve.Release(conn)
		r.CloseConn(conn)
		return
	}
	if !done {
		if rerr := r.RearmWrite(conn.FD); rerr != nil {
			r.CloseConn(conn)
		}
		return
	}

	if err := fsresolve.Release(conn); err != nil && r.cfg.Verbose {
		log.Printf("relay: munmap fd=%d: %v", conn.FD, err)
	}

	if conn.Request.Linger {
		conn.ResetForReuse()
		if err := r.RearmRead(conn.FD); err != nil {
			r.CloseConn(conn)
		}
		return
	}
	r.CloseConn(conn)
}

// RearmRead implements workerpool.Rearmer.
func (r *Reactor) RearmRead(fd int) error {
	events := uint32(unix.EPOLLIN | unix.EPOLLRDHUP | unix.EPOLLONESHOT)
	if clientEdgeTriggered {
		events |= unix.EPOLLET
	}
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{
		Events: events,
		Fd:     int32(fd),
	})
}

// RearmWrite implements workerpool.Rearmer.
func (r *Reactor) RearmWrite(fd int) error {
	events := uint32(unix.EPOLLOUT | unix.EPOLLRDHUP | unix.EPOLLONESHOT)
	if clientEdgeTriggered {
		events |= unix.EPOLLET
	}
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{
		Events: events,
		Fd:     int32(fd),
	})
}

// CloseConn implements workerpool.Rearmer: it unregisters fd from epoll,
// closes the socket, releases any mmap, and removes the connection from
// the table (spec §3's destruction contract). Safe to call from the
// reactor thread or a worker thread (spec §4.8 step 5).
func (r *Reactor) CloseConn(conn *connstate.Connection) {
	r.mu.Lock()
	if _, ok := r.conns[conn.FD]; !ok {
		r.mu.Unlock()
		return // already closed by someone else
	}
	delete(r.conns, conn.FD)
	r.mu.Unlock()

	_ = fsresolve.Release(conn)
	_ = unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, conn.FD, nil)
	unix.Close(conn.FD)
	r.userCount.Add(-1)

	if r.cfg.Verbose {
		log.Printf("relay: closed %s fd=%d", conn.PeerAddr, conn.FD)
	}
}

func (r *Reactor) lookup(fd int) *connstate.Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conns[fd]
}

// UserCount returns the number of currently registered client connections
// (spec §3, §8 testable property 1).
func (r *Reactor) UserCount() int64 {
	return r.userCount.Load()
}

// Close stops the reactor loop and releases the listening socket and
// epoll instance. It does not forcibly close client connections; workers
// already holding custody of one finish naturally.
func (r *Reactor) Close() error {
	r.closed.Store(true)
	if r.epfd != 0 {
		unix.Close(r.epfd)
	}
	if r.listFD != 0 {
		unix.Close(r.listFD)
	}
	return nil
}
