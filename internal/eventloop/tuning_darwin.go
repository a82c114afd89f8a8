//go:build darwin

package eventloop

import "syscall"

const soNoSigpipe = 0x1022
const tcpKeepalive = 0x10

// applyPlatformConnOptions mirrors the Linux keepalive tuning using
// Darwin's single TCP_KEEPALIVE idle-time option, and suppresses SIGPIPE
// on writes to an already-closed peer (the loop treats that as a normal
// connection-close event, not a fatal signal).
func applyPlatformConnOptions(fd int) {
	_ = syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, soNoSigpipe, 1)
	_ = syscall.SetsockoptInt(fd, syscall.IPPROTO_TCP, tcpKeepalive, 60)
}

// applyPlatformListenerOptions is a no-op: Darwin has no TCP_DEFER_ACCEPT
// equivalent.
func applyPlatformListenerOptions(fd int) {}
