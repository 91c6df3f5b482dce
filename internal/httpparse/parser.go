// Package httpparse implements the per-connection two-level HTTP/1.1
// request parser described in spec §4.3: a line-extraction sub-state-machine
// (line.go) feeding a main request/headers/content state machine (this
// file). Parse is a pure function over *connstate.Connection — it never
// performs I/O and never blocks, so it is safe to call from a worker that
// must not suspend (spec §4.8, §5).
package httpparse

import (
	"bytes"
	"strconv"

	"github.com/yourusername/relay/internal/connstate"
)

// Parse drives the state machine across as many complete lines (or, in the
// CONTENT state, as many buffered bytes) as c.ReadBuf currently holds,
// stopping at NoRequest (need more bytes) or a terminal Result.
//
// Streaming equivalence (spec §8): Parse only ever advances CheckedIdx and
// StartLine forward and only consumes bytes it has fully validated, so
// calling it repeatedly as more bytes trickle into ReadBuf yields the same
// terminal result as calling it once over the complete request.
func Parse(c *connstate.Connection) Result {
	status := lineOK
	for {
		var line []byte
		if c.ParserState == connstate.StateContent {
			if status != lineOK {
				break
			}
		} else {
			status = scanLine(c)
			if status == lineBad {
				return BadRequest
			}
			if status == lineOpen {
				break
			}
			line = c.ReadBuf[c.StartLine : c.CheckedIdx-2]
			c.StartLine = c.CheckedIdx
		}

		var result Result
		switch c.ParserState {
		case connstate.StateRequestLine:
			result = parseRequestLine(c, line)
		case connstate.StateHeaders:
			result = parseHeaders(c, line)
		case connstate.StateContent:
			result = parseContent(c)
			status = lineOpen // content never re-derives a line; force loop exit
		default:
			return InternalError
		}

		if result == BadRequest {
			return BadRequest
		}
		if result == GetRequest {
			return GetRequest
		}
	}
	return NoRequest
}

var (
	httpPrefix  = []byte("http://")
	httpVersion = "HTTP/1.1"
)

// parseRequestLine parses "METHOD SP URL SP VERSION" (spec §4.3). On
// success it transitions c.ParserState to HEADERS and returns NoRequest so
// the driver loop continues.
func parseRequestLine(c *connstate.Connection, line []byte) Result {
	methodEnd := bytes.IndexByte(line, ' ')
	if methodEnd < 0 {
		return BadRequest
	}
	rest := line[methodEnd+1:]
	urlEnd := bytes.IndexByte(rest, ' ')
	if urlEnd < 0 {
		return BadRequest
	}

	method := line[:methodEnd]
	url := rest[:urlEnd]
	version := rest[urlEnd+1:]

	if !equalFoldASCII(method, []byte("GET")) {
		return BadRequest
	}
	if !equalFoldASCII(version, []byte(httpVersion)) {
		return BadRequest
	}

	if bytes.HasPrefix(lowerASCIICopy(url), httpPrefix) {
		if idx := bytes.IndexByte(url[len(httpPrefix):], '/'); idx >= 0 {
			url = url[len(httpPrefix)+idx:]
		}
	}
	if len(url) == 0 || url[0] != '/' {
		return BadRequest
	}

	c.Request.Method = "GET"
	c.Request.URL = string(url)
	c.Request.Version = httpVersion
	c.ParserState = connstate.StateHeaders
	return NoRequest
}

var (
	hdrConnection    = []byte("connection:")
	hdrContentLength = []byte("content-length:")
	hdrHost          = []byte("host:")
)

// parseHeaders dispatches a single header line by case-insensitive prefix
// (spec §4.3). An empty line ends the header block: it transitions to
// CONTENT when a body is expected, or returns GetRequest directly.
func parseHeaders(c *connstate.Connection, line []byte) Result {
	if len(line) == 0 {
		if c.Request.ContentLength > 0 {
			c.ParserState = connstate.StateContent
			return NoRequest
		}
		return GetRequest
	}

	lower := lowerASCIICopy(line)
	switch {
	case bytes.HasPrefix(lower, hdrConnection):
		value := bytes.TrimSpace(line[len(hdrConnection):])
		if equalFoldASCII(value, []byte("keep-alive")) {
			c.Request.Linger = true
		}
	case bytes.HasPrefix(lower, hdrContentLength):
		value := bytes.TrimSpace(line[len(hdrContentLength):])
		n, err := strconv.Atoi(string(value))
		if err != nil || n < 0 {
			return BadRequest
		}
		c.Request.ContentLength = n
	case bytes.HasPrefix(lower, hdrHost):
		c.Request.Host = string(bytes.TrimSpace(line[len(hdrHost):]))
	default:
		// unknown header, ignored
	}
	return NoRequest
}

// parseContent checks whether the full declared body has arrived (spec
// §4.3). The body itself is captured but never interpreted further — this
// server has no dynamic content, matching the Non-goals in spec §1.
func parseContent(c *connstate.Connection) Result {
	if c.ReadIdx >= c.Request.ContentLength+c.CheckedIdx {
		return GetRequest
	}
	return NoRequest
}

func equalFoldASCII(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if toLowerASCII(a[i]) != toLowerASCII(b[i]) {
			return false
		}
	}
	return true
}

func lowerASCIICopy(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[i] = toLowerASCII(c)
	}
	return out
}

func toLowerASCII(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
