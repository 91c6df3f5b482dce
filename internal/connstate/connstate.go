// Package connstate defines the per-connection state a relay server threads
// through the reactor, parser, resolver, and response builder. It holds no
// behavior beyond lifecycle bookkeeping; every other package operates on a
// *Connection passed in, the way shockwave/http11's Request/ResponseWriter
// carry zero-copy slices into a shared buffer rather than owning logic.
package connstate

import "os"

// ParserState is the top-level state of the two-level HTTP parser
// (spec §4.3). It is advanced by internal/httpparse and reset on
// keep-alive reuse.
type ParserState uint8

const (
	StateRequestLine ParserState = iota
	StateHeaders
	StateContent
)

func (s ParserState) String() string {
	switch s {
	case StateRequestLine:
		return "REQUEST_LINE"
	case StateHeaders:
		return "HEADERS"
	case StateContent:
		return "CONTENT"
	default:
		return "UNKNOWN"
	}
}

// maxResourcePathLen bounds RealFile the way the original C implementation's
// char real_file[200] does (see SPEC_FULL.md §12).
const maxResourcePathLen = 200

// Request holds the fields the HTTP parser extracts from a single request
// (spec §3). URL and Host are string copies of bytes from the connection's
// read buffer, so they stay valid after the buffer is reused or reset.
type Request struct {
	Method        string
	URL           string
	Version       string
	Host          string
	ContentLength int
	Linger        bool
}

func (r *Request) reset() {
	r.Method = ""
	r.URL = ""
	r.Version = ""
	r.Host = ""
	r.ContentLength = 0
	r.Linger = false
}

// FileStat is the subset of os.FileInfo the response builder needs once a
// resource has been staged for serving.
type FileStat struct {
	Size int64
	Mode os.FileMode
}

// Connection is the per-client structure described in spec §3. One exists
// per live TCP client; custody passes between the reactor and a single
// worker at a time (spec §5) and the struct itself enforces no locking —
// the one-shot rearm discipline is the only synchronization this type
// relies on.
type Connection struct {
	// FD is the OS handle for the non-blocking, connected TCP endpoint.
	FD int

	// PeerAddr is the IPv4 address captured at accept.
	PeerAddr string

	// ReadBuf is a fixed-capacity buffer; ReadIdx is the write cursor
	// (bytes received so far), CheckedIdx is the parser's scan cursor,
	// and StartLine marks the first byte of the line under examination.
	// Invariant: 0 <= StartLine <= CheckedIdx <= ReadIdx <= cap(ReadBuf).
	ReadBuf    []byte
	ReadIdx    int
	CheckedIdx int
	StartLine  int

	// WriteBuf is a fixed-capacity buffer with cursor WriteIdx.
	// Invariant: 0 <= WriteIdx <= cap(WriteBuf).
	WriteBuf []byte
	WriteIdx int

	// ParserState is one of {REQUEST_LINE, HEADERS, CONTENT}.
	ParserState ParserState

	// Request holds the fields extracted from the current request.
	Request Request

	// RealFile is the resolved filesystem path of the requested
	// resource, bounded to maxResourcePathLen bytes.
	RealFile string

	// FileStat is populated once the resource is staged for a
	// FILE_REQUEST response.
	FileStat FileStat

	// MmapRegion is the read-only mapping of the requested file. It is
	// non-nil only while staging/sending a FILE_REQUEST response and
	// must be released (via internal/fsresolve.Release) before the
	// connection is reused or closed.
	MmapRegion []byte

	// IOVSegments is the remaining scatter/gather write payload: up to
	// two segments, {WriteBuf[:WriteIdx], MmapRegion}. Segments are
	// trimmed from the front as bytes are sent; an empty slice means
	// that segment is exhausted.
	IOVSegments [][]byte
}

// New allocates a Connection with fixed-capacity buffers sized per config.
func New(fd int, peerAddr string, readBufCap, writeBufCap int) *Connection {
	return &Connection{
		FD:       fd,
		PeerAddr: peerAddr,
		ReadBuf:  make([]byte, readBufCap),
		WriteBuf: make([]byte, writeBufCap),
	}
}

// ResetForReuse re-initializes parser state, cursors, and buffers for
// keep-alive reuse (spec §3 Lifecycle, testable property 4). The socket and
// any released mmap are left untouched — the caller is responsible for
// having already released MmapRegion via fsresolve.Release.
func (c *Connection) ResetForReuse() {
	c.ParserState = StateRequestLine
	c.ReadIdx = 0
	c.CheckedIdx = 0
	c.StartLine = 0
	c.WriteIdx = 0
	c.Request.reset()
	c.RealFile = ""
	c.FileStat = FileStat{}
	c.MmapRegion = nil
	c.IOVSegments = nil
	zero(c.ReadBuf)
	zero(c.WriteBuf)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// SetRealFile bounds-copies docRoot+url into RealFile without
// overrunning maxResourcePathLen (spec §4.4's "bounded copy; truncation
// must not overrun real_file").
func (c *Connection) SetRealFile(docRoot, url string) {
	s := docRoot + url
	if len(s) > maxResourcePathLen {
		s = s[:maxResourcePathLen]
	}
	c.RealFile = s
}
