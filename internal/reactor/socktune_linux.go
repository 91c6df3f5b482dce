//go:build linux

package reactor

import "golang.org/x/sys/unix"

// TCP_DEFER_ACCEPT is not in every golang.org/x/sys/unix build's constant
// table under that name; its numeric value is stable across Linux kernel
// versions (see tcp.h).
const tcpDeferAccept = 9

// tuneListener applies the listener-side socket options spec.md §6 implies
// a production static file server wants: don't wake the accept loop until
// the client has actually sent bytes. Failure is non-fatal — the option is
// an optimization, not a correctness requirement.
func tuneListener(fd int) {
	_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, tcpDeferAccept, 5)
}

// tuneAccepted applies per-connection socket options immediately after
// accept: TCP_NODELAY (status lines and small error bodies shouldn't wait
// on Nagle's algorithm) and SO_KEEPALIVE (detect a peer that vanished
// without a FIN/RST while a keep-alive connection sits idle between
// requests, spec §3's Linger path).
func tuneAccepted(fd int) {
	_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1)
}
