//go:build linux

package reactor

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/yourusername/relay/internal/connstate"
)

// readConn implements spec §4.2's non-blocking read loop: repeatedly read
// into read_buf[read_idx..] until the kernel reports would-block, the peer
// closes, or the buffer fills.
func readConn(c *connstate.Connection) error {
	if c.ReadIdx >= len(c.ReadBuf) {
		return errBufferFull
	}
	for c.ReadIdx < len(c.ReadBuf) {
		n, err := unix.Read(c.FD, c.ReadBuf[c.ReadIdx:])
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return nil
			}
			return err
		}
		if n == 0 {
			return errPeerClosed
		}
		c.ReadIdx += n
	}
	return nil
}

// writeConn implements spec §4.6's vectored write loop. It performs a
// writev of whatever segments remain in c.IOVSegments and advances past
// however many bytes the kernel accepted, correctly handling a partial
// write that lands in the middle of a segment or exactly on a segment
// boundary — the case the original implementation mishandles (spec.md §9
// flags this as the one required behavioral fix).
//
// It returns done=true once every segment is fully written, done=false if
// the kernel would block partway through (caller must re-arm for write),
// and a non-nil error on an unrecoverable write failure.
func writeConn(c *connstate.Connection) (done bool, err error) {
	for {
		dropEmptyLeadingSegments(c)
		if len(c.IOVSegments) == 0 {
			return true, nil
		}

		n, werr := unix.Writev(c.FD, c.IOVSegments)
		if werr != nil {
			if werr == unix.EAGAIN || werr == unix.EWOULDBLOCK {
				return false, nil
			}
			return false, werr
		}
		advanceSegments(c, int(n))
	}
}

func dropEmptyLeadingSegments(c *connstate.Connection) {
	for len(c.IOVSegments) > 0 && len(c.IOVSegments[0]) == 0 {
		c.IOVSegments = c.IOVSegments[1:]
	}
}

// advanceSegments consumes n written bytes from the front of
// c.IOVSegments, splitting the segment a partial write lands inside
// rather than assuming writes land on segment boundaries.
func advanceSegments(c *connstate.Connection, n int) {
	for n > 0 && len(c.IOVSegments) > 0 {
		seg := c.IOVSegments[0]
		if n < len(seg) {
			c.IOVSegments[0] = seg[n:]
			return
		}
		n -= len(seg)
		c.IOVSegments = c.IOVSegments[1:]
	}
}

func peerAddrString(fd int) string {
	sa, err := unix.Getpeername(fd)
	if err != nil {
		return "unknown"
	}
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return fmt.Sprintf("%d.%d.%d.%d:%d", a.Addr[0], a.Addr[1], a.Addr[2], a.Addr[3], a.Port)
	case *unix.SockaddrInet6:
		return fmt.Sprintf("[%x]:%d", a.Addr, a.Port)
	default:
		return "unknown"
	}
}
