// Package relayconf holds the static-file server's runtime configuration.
package relayconf

// Config controls the reactor, worker pool, and resource limits of a relay
// server. The zero value is not ready to use; construct one with
// DefaultConfig and override individual fields.
type Config struct {
	// Addr is the TCP address to listen on, e.g. ":8080".
	Addr string

	// DocRoot is the filesystem directory static requests are resolved
	// against. Not canonicalized; see internal/fsresolve for the
	// path-traversal decision.
	DocRoot string

	// WorkerCount is the number of fixed worker goroutines that parse
	// requests and stage responses (spec §4.8). Default 8.
	WorkerCount int

	// MaxQueuedConns bounds the task queue shared by all connections
	// (spec §4.7). The reactor drops work that doesn't fit.
	MaxQueuedConns int

	// MaxConnections is the process-wide concurrent connection ceiling
	// (MAX_FD in spec §6). New accepts beyond this are closed immediately.
	MaxConnections int

	// ReadBufferSize is the fixed capacity of each connection's read
	// buffer (spec §3, suggested 2 KiB).
	ReadBufferSize int

	// WriteBufferSize is the fixed capacity of each connection's write
	// buffer (spec §3, suggested 1 KiB).
	WriteBufferSize int

	// ListenBacklog is the backlog passed to listen(2) (spec §6).
	ListenBacklog int

	// Verbose enables per-connection lifecycle logging. Off by default
	// so a loaded server isn't dominated by log I/O.
	Verbose bool
}

// DefaultConfig returns a Config with the values spec.md names as
// suggested/default throughout §3, §4.7, §4.8, and §6.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		WorkerCount:     8,
		MaxQueuedConns:  1024,
		MaxConnections:  65536,
		ReadBufferSize:  2048,
		WriteBufferSize: 1024,
		ListenBacklog:   5,
		Verbose:         false,
	}
}

// applyDefaults fills in zero-valued fields left unset by the caller,
// the way shockwave/server.NewBaseServer backfills its Config.
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Addr == "" {
		c.Addr = d.Addr
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = d.WorkerCount
	}
	if c.MaxQueuedConns <= 0 {
		c.MaxQueuedConns = d.MaxQueuedConns
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = d.MaxConnections
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = d.ReadBufferSize
	}
	if c.WriteBufferSize <= 0 {
		c.WriteBufferSize = d.WriteBufferSize
	}
	if c.ListenBacklog <= 0 {
		c.ListenBacklog = d.ListenBacklog
	}
}

// Normalize returns a copy of c with defaults applied.
func Normalize(c Config) Config {
	c.applyDefaults()
	return c
}
