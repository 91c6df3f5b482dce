// Package respbuild implements the response builder (spec §4.5): it
// appends a status line, headers, and an optional inline body into a
// connection's write buffer and prepares the scatter/gather write payload.
package respbuild

import (
	"strconv"

	"github.com/yourusername/relay/internal/connstate"
	"github.com/yourusername/relay/internal/fsresolve"
	"github.com/yourusername/relay/internal/httpparse"
)

// Error body text, byte-for-byte what the original C server this spec was
// distilled from emits (see DESIGN.md, internal/respbuild).
const (
	title400 = "Bad Request"
	body400  = "Your request has bad syntax or is inherently impossible to satisfy.\n"
	title403 = "Forbidden"
	body403  = "You do not have permission to get file from this server.\n"
	title404 = "Not Found"
	body404  = "The requested file was not found on this server.\n"
	title500 = "Internal Error"
	body500  = "There was an unusual problem serving the requested file.\n"
)

// Build renders the response for a terminal parser/resolution Result into
// c.WriteBuf and fills c.IOVSegments. It returns false if the write buffer
// didn't have room for the headers/body (spec §4.5, §9's note that
// add_headers/add_content overflow must not be ignored); the caller must
// close the connection in that case.
func Build(c *connstate.Connection, result httpparse.Result) bool {
	c.WriteIdx = 0

	switch result {
	case httpparse.FileRequest:
		return buildFileResponse(c)
	case httpparse.BadRequest:
		return buildErrorResponse(c, 400, title400, body400)
	case httpparse.NoResource:
		return buildErrorResponse(c, 404, title404, body404)
	case httpparse.ForbiddenRequest:
		return buildErrorResponse(c, 403, title403, body403)
	case httpparse.InternalError:
		return buildErrorResponse(c, 500, title500, body500)
	default:
		return buildErrorResponse(c, 500, title500, body500)
	}
}

func buildFileResponse(c *connstate.Connection) bool {
	if !appendStatusLine(c, 200, "OK") {
		return false
	}
	if !appendCommonHeaders(c, c.FileStat.Size, c.Request.Linger) {
		return false
	}
	c.IOVSegments = [][]byte{
		c.WriteBuf[:c.WriteIdx],
		c.MmapRegion,
	}
	return true
}

func buildErrorResponse(c *connstate.Connection, code int, title, body string) bool {
	if !appendStatusLine(c, code, title) {
		return false
	}
	if !appendCommonHeaders(c, int64(len(body)), c.Request.Linger) {
		return false
	}
	if !appendString(c, body) {
		return false
	}
	c.IOVSegments = [][]byte{c.WriteBuf[:c.WriteIdx]}
	return true
}

func appendStatusLine(c *connstate.Connection, code int, title string) bool {
	return appendString(c, "HTTP/1.1 "+strconv.Itoa(code)+" "+title+"\r\n")
}

// appendCommonHeaders appends the headers every response carries (spec
// §4.5, §6): Content-Length, Content-Type, Connection, and the blank line
// ending the header block.
func appendCommonHeaders(c *connstate.Connection, contentLength int64, linger bool) bool {
	if !appendString(c, "Content-Length: "+strconv.FormatInt(contentLength, 10)+"\r\n") {
		return false
	}
	if !appendString(c, "Content-Type:text/html\r\n") {
		return false
	}
	connValue := "close"
	if linger {
		connValue = "keep-alive"
	}
	if !appendString(c, "Connection: "+connValue+"\r\n") {
		return false
	}
	return appendString(c, "\r\n")
}

// appendString is the bounded append described in spec §4.5: it fails
// (returning false, leaving WriteIdx unchanged) rather than overrunning
// WriteBuf's fixed capacity.
func appendString(c *connstate.Connection, s string) bool {
	if c.WriteIdx+len(s) > len(c.WriteBuf) {
		return false
	}
	n := copy(c.WriteBuf[c.WriteIdx:], s)
	c.WriteIdx += n
	return true
}

// Discard releases any mmap staged for this response without sending it —
// used when Build fails and the connection must be closed (spec §9).
func Discard(c *connstate.Connection) {
	_ = fsresolve.Release(c)
}
