// Command relay-server runs the static file server described by spec.md:
// "relay-server <port> [docroot]". Argument parsing is intentionally thin
// (spec §6: "argument parsing is out of scope of the core") — this file
// exists only to wire a Config and start the reactor and worker pool.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/yourusername/relay/internal/reactor"
	"github.com/yourusername/relay/internal/relayconf"
	"github.com/yourusername/relay/internal/taskqueue"
	"github.com/yourusername/relay/internal/workerpool"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <port> [docroot]\n", os.Args[0])
		os.Exit(1)
	}

	port, err := strconv.Atoi(os.Args[1])
	if err != nil || port <= 0 || port > 65535 {
		fmt.Fprintf(os.Stderr, "%s: invalid port %q\n", os.Args[0], os.Args[1])
		os.Exit(1)
	}

	docRoot := "."
	if len(os.Args) >= 3 {
		docRoot = os.Args[2]
	}

	cfg := relayconf.Normalize(relayconf.Config{
		Addr:    fmt.Sprintf(":%d", port),
		DocRoot: docRoot,
		Verbose: os.Getenv("RELAY_VERBOSE") != "",
	})

	// The original server ignores SIGPIPE so a write to a half-closed
	// socket surfaces as EPIPE from the write call instead of killing the
	// process (spec.md §6, SPEC_FULL.md §12). The Go runtime already
	// ignores SIGPIPE for non-stdio file descriptors; this makes that
	// contract explicit and covers the stdio-inherited-fd edge case.
	signal.Ignore(syscall.SIGPIPE)

	queue := taskqueue.New(cfg.MaxQueuedConns)
	r := reactor.New(cfg, queue)
	pool := workerpool.New(queue, r, cfg.DocRoot, cfg.WorkerCount, cfg.Verbose)

	pool.Start()
	defer pool.Stop()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		log.Println("relay: shutting down")
		_ = r.Close()
	}()

	log.Printf("relay: serving %s on %s (workers=%d, maxconn=%d)", cfg.DocRoot, cfg.Addr, cfg.WorkerCount, cfg.MaxConnections)
	if err := r.ListenAndServe(); err != nil {
		log.Printf("relay: fatal: %v", err)
		os.Exit(1)
	}
}
