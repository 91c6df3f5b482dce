package httpparse

import "github.com/yourusername/relay/internal/connstate"

// lineStatus is the line-extractor sub-state-machine's verdict (spec §4.3).
type lineStatus uint8

const (
	lineOK lineStatus = iota
	lineOpen
	lineBad
)

// scanLine scans c.ReadBuf[c.CheckedIdx:c.ReadIdx] byte-by-byte looking for
// a CRLF (or bare-LF-after-CR) line terminator. On a match it rewrites both
// terminator bytes to NUL in place and advances c.CheckedIdx past them,
// returning lineOK. It never blocks and never backtracks past a prior call:
// callers are expected to invoke it again once more bytes have arrived if
// it returns lineOpen.
func scanLine(c *connstate.Connection) lineStatus {
	for ; c.CheckedIdx < c.ReadIdx; c.CheckedIdx++ {
		b := c.ReadBuf[c.CheckedIdx]
		switch b {
		case '\r':
			if c.CheckedIdx+1 == c.ReadIdx {
				return lineOpen
			}
			if c.ReadBuf[c.CheckedIdx+1] == '\n' {
				c.ReadBuf[c.CheckedIdx] = 0
				c.ReadBuf[c.CheckedIdx+1] = 0
				c.CheckedIdx += 2
				return lineOK
			}
			return lineBad
		case '\n':
			if c.CheckedIdx > c.StartLine && c.ReadBuf[c.CheckedIdx-1] == '\r' {
				c.ReadBuf[c.CheckedIdx-1] = 0
				c.ReadBuf[c.CheckedIdx] = 0
				c.CheckedIdx++
				return lineOK
			}
			return lineBad
		}
	}
	return lineOpen
}
