package httpparse

import (
	"testing"

	"github.com/yourusername/relay/internal/connstate"
)

func newTestConn(capacity int) *connstate.Connection {
	return connstate.New(0, "127.0.0.1:0", capacity, 256)
}

func feed(c *connstate.Connection, chunk []byte) {
	n := copy(c.ReadBuf[c.ReadIdx:], chunk)
	c.ReadIdx += n
}

func TestParseSimpleGet(t *testing.T) {
	c := newTestConn(2048)
	feed(c, []byte("GET /index.html HTTP/1.1\r\nHost: x\r\n\r\n"))

	got := Parse(c)
	if got != GetRequest {
		t.Fatalf("Parse() = %v, want GetRequest", got)
	}
	if c.Request.URL != "/index.html" {
		t.Errorf("URL = %q, want /index.html", c.Request.URL)
	}
	if c.Request.Host != "x" {
		t.Errorf("Host = %q, want x", c.Request.Host)
	}
	if c.Request.Linger {
		t.Errorf("Linger = true, want false")
	}
}

func TestParseKeepAlive(t *testing.T) {
	c := newTestConn(2048)
	feed(c, []byte("GET /a HTTP/1.1\r\nConnection: keep-alive\r\n\r\n"))
	if got := Parse(c); got != GetRequest {
		t.Fatalf("Parse() = %v, want GetRequest", got)
	}
	if !c.Request.Linger {
		t.Errorf("Linger = false, want true")
	}
}

func TestParseAbsoluteURL(t *testing.T) {
	c := newTestConn(2048)
	feed(c, []byte("GET http://example.com/foo HTTP/1.1\r\n\r\n"))
	if got := Parse(c); got != GetRequest {
		t.Fatalf("Parse() = %v, want GetRequest", got)
	}
	if c.Request.URL != "/foo" {
		t.Errorf("URL = %q, want /foo", c.Request.URL)
	}
}

func TestParseNonGETIsBadRequest(t *testing.T) {
	c := newTestConn(2048)
	feed(c, []byte("POST /x HTTP/1.1\r\n\r\n"))
	if got := Parse(c); got != BadRequest {
		t.Fatalf("Parse() = %v, want BadRequest", got)
	}
}

func TestParseIncompleteRequestLine(t *testing.T) {
	c := newTestConn(2048)
	feed(c, []byte("GET /index.html HTTP/1.1\r\n"))
	if got := Parse(c); got != NoRequest {
		t.Fatalf("Parse() = %v, want NoRequest", got)
	}
}

func TestParseWithContentBody(t *testing.T) {
	c := newTestConn(2048)
	feed(c, []byte("GET /x HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello"))
	if got := Parse(c); got != GetRequest {
		t.Fatalf("Parse() = %v, want GetRequest", got)
	}
}

func TestParseContentIncomplete(t *testing.T) {
	c := newTestConn(2048)
	feed(c, []byte("GET /x HTTP/1.1\r\nContent-Length: 5\r\n\r\nhel"))
	if got := Parse(c); got != NoRequest {
		t.Fatalf("Parse() = %v, want NoRequest", got)
	}
}

// TestParseOneByteAtATime verifies streaming equivalence (spec §8): feeding
// the same bytes one at a time and re-invoking Parse after each must reach
// the same terminal result as a single bulk feed.
func TestParseOneByteAtATime(t *testing.T) {
	full := []byte("GET /index.html HTTP/1.1\r\nHost: x\r\nConnection: keep-alive\r\n\r\n")
	c := newTestConn(2048)

	var got Result = NoRequest
	for i := 0; i < len(full); i++ {
		feed(c, full[i:i+1])
		got = Parse(c)
		if got != NoRequest {
			break
		}
	}
	if got != GetRequest {
		t.Fatalf("byte-at-a-time Parse() = %v, want GetRequest", got)
	}
	if c.Request.URL != "/index.html" || !c.Request.Linger {
		t.Errorf("unexpected request state: %+v", c.Request)
	}
}

// TestParseArbitraryChunking re-parses the same stream split at every
// possible boundary and checks the terminal result never changes.
func TestParseArbitraryChunking(t *testing.T) {
	full := []byte("GET /a HTTP/1.1\r\nHost: h\r\nContent-Length: 3\r\n\r\nabc")
	for split := 1; split < len(full); split++ {
		c := newTestConn(2048)
		feed(c, full[:split])
		got := Parse(c)
		if got == GetRequest {
			t.Fatalf("split=%d: got GetRequest before full input fed", split)
		}
		feed(c, full[split:])
		got = Parse(c)
		if got != GetRequest {
			t.Fatalf("split=%d: Parse() = %v, want GetRequest", split, got)
		}
	}
}

func TestParseExactCapacityBoundary(t *testing.T) {
	req := []byte("GET /x HTTP/1.1\r\nHost: h\r\n\r\n")
	c := newTestConn(len(req))
	feed(c, req)
	if got := Parse(c); got != GetRequest {
		t.Fatalf("Parse() = %v, want GetRequest", got)
	}
}

func TestParseMalformedRequestLine(t *testing.T) {
	c := newTestConn(2048)
	feed(c, []byte("GET\r\n\r\n"))
	if got := Parse(c); got != BadRequest {
		t.Fatalf("Parse() = %v, want BadRequest", got)
	}
}

func TestParseBadLineTermination(t *testing.T) {
	c := newTestConn(2048)
	feed(c, []byte("GET /x HTTP/1.1\r\n\n\n"))
	if got := Parse(c); got != BadRequest {
		t.Fatalf("Parse() = %v, want BadRequest", got)
	}
}
