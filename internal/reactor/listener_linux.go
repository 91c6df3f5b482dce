//go:build linux

package reactor

import (
	"fmt"
	"net"
	"strconv"

	"golang.org/x/sys/unix"
)

// newListener builds a non-blocking, SO_REUSEADDR IPv4 listening socket
// bound to addr ("host:port", empty host means all interfaces), the way
// spec §6 describes server construction. It is a raw unix.Socket rather
// than net.Listen because the reactor needs the bare file descriptor to
// register with epoll and to drive Accept4/Read/Writev itself.
func newListener(addr string, backlog int) (int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("reactor: invalid listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("reactor: invalid listen port %q: %w", portStr, err)
	}

	var ip4 [4]byte
	if host != "" {
		ip := net.ParseIP(host)
		if ip == nil {
			resolved, err := net.ResolveIPAddr("ip4", host)
			if err != nil {
				return 0, fmt.Errorf("reactor: resolving %q: %w", host, err)
			}
			ip = resolved.IP
		}
		v4 := ip.To4()
		if v4 == nil {
			return 0, fmt.Errorf("reactor: %q is not an IPv4 address", host)
		}
		copy(ip4[:], v4)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return 0, fmt.Errorf("reactor: socket: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return 0, fmt.Errorf("reactor: setsockopt SO_REUSEADDR: %w", err)
	}

	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: port, Addr: ip4}); err != nil {
		unix.Close(fd)
		return 0, fmt.Errorf("reactor: bind %s: %w", addr, err)
	}

	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return 0, fmt.Errorf("reactor: listen: %w", err)
	}

	tuneListener(fd)

	return fd, nil
}
