//go:build linux

package eventloop

import "syscall"

// TCP_DEFER_ACCEPT is not defined in every syscall package snapshot.
const tcpDeferAccept = 9

// applyPlatformConnOptions tunes TCP keepalive probing (first probe after
// 60 s idle, then every 10 s, giving up after 3 misses) so a dead peer
// surfaces as a socket error on the connection.
func applyPlatformConnOptions(fd int) {
	_ = syscall.SetsockoptInt(fd, syscall.IPPROTO_TCP, syscall.TCP_KEEPIDLE, 60)
	_ = syscall.SetsockoptInt(fd, syscall.IPPROTO_TCP, syscall.TCP_KEEPINTVL, 10)
	_ = syscall.SetsockoptInt(fd, syscall.IPPROTO_TCP, syscall.TCP_KEEPCNT, 3)
}

// applyPlatformListenerOptions defers waking the accept queue until the
// client has actually sent request bytes, which matters for a
// single-threaded loop: every woken connection costs one Accept plus one
// poller registration.
func applyPlatformListenerOptions(fd int) {
	_ = syscall.SetsockoptInt(fd, syscall.IPPROTO_TCP, tcpDeferAccept, 5)
}
