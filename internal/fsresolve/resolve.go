// Package fsresolve implements resource resolution (spec §4.4): turning a
// validated GET request's URL into a staged, memory-mapped file ready for
// the response builder, or an error result code.
package fsresolve

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/yourusername/relay/internal/connstate"
	"github.com/yourusername/relay/internal/httpparse"
)

// otherReadable is the "other" permission bit the original C implementation
// checks via st_mode & S_IROTH (spec §4.4, §6).
const otherReadable = 0o004

// Resolve concatenates docRoot with c.Request.URL into c.RealFile, stats
// the result, and — for a regular, other-readable file — establishes a
// private read-only mmap of its full contents. It is called once per
// GET_REQUEST and never blocks on anything but local filesystem syscalls.
//
// Path traversal: per spec §4.4's open question, this implementation
// rejects any URL containing ".." before the bounded concatenation, since
// the spec's suggested safe behavior is preferable to reproducing the
// original's unchecked concatenation (SPEC_FULL.md §9/open questions).
func Resolve(c *connstate.Connection, docRoot string) httpparse.Result {
	if containsDotDot(c.Request.URL) {
		return httpparse.BadRequest
	}

	c.SetRealFile(docRoot, c.Request.URL)

	info, err := os.Stat(c.RealFile)
	if err != nil {
		return httpparse.NoResource
	}
	if info.Mode()&os.FileMode(otherReadable) == 0 {
		return httpparse.ForbiddenRequest
	}
	if info.IsDir() {
		return httpparse.BadRequest
	}
	if !info.Mode().IsRegular() {
		return httpparse.NoResource
	}

	f, err := os.Open(c.RealFile)
	if err != nil {
		return httpparse.NoResource
	}
	defer f.Close()

	size := info.Size()
	c.FileStat = connstate.FileStat{Size: size, Mode: info.Mode()}

	if size == 0 {
		// mmap of a zero-length file is invalid; an empty body needs no
		// mapping at all.
		c.MmapRegion = []byte{}
		return httpparse.FileRequest
	}

	region, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return httpparse.InternalError
	}
	c.MmapRegion = region
	return httpparse.FileRequest
}

// Release unmaps c.MmapRegion if one is held. It must be called before a
// connection is closed or reused (spec §3 invariant, §8 testable property 5).
func Release(c *connstate.Connection) error {
	if c.MmapRegion == nil || len(c.MmapRegion) == 0 {
		c.MmapRegion = nil
		return nil
	}
	region := c.MmapRegion
	c.MmapRegion = nil
	if err := unix.Munmap(region); err != nil {
		if err == syscall.EINVAL {
			return nil
		}
		return err
	}
	return nil
}

func containsDotDot(url string) bool {
	for i := 0; i+1 < len(url); i++ {
		if url[i] == '.' && url[i+1] == '.' {
			return true
		}
	}
	return false
}
