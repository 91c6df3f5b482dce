package httpparse

// Result is the parser/resolution result code enumerated in spec §4.3.
// NoRequest means "incomplete; rearm for read"; every other value is
// terminal for the current request cycle. The same enum spans both the
// HTTP parser (internal/httpparse) and resource resolution
// (internal/fsresolve) because spec.md treats them as one pipeline result.
type Result uint8

const (
	NoRequest Result = iota
	GetRequest
	BadRequest
	NoResource
	ForbiddenRequest
	FileRequest
	InternalError
)

func (r Result) String() string {
	switch r {
	case NoRequest:
		return "NO_REQUEST"
	case GetRequest:
		return "GET_REQUEST"
	case BadRequest:
		return "BAD_REQUEST"
	case NoResource:
		return "NO_RESOURCE"
	case ForbiddenRequest:
		return "FORBIDDEN_REQUEST"
	case FileRequest:
		return "FILE_REQUEST"
	case InternalError:
		return "INTERNAL_ERROR"
	default:
		return "UNKNOWN_RESULT"
	}
}
