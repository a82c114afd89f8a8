package eventloop

import "syscall"

// tuneConnFd applies the socket options this server wants on every
// accepted connection: Nagle's algorithm disabled (HTTP responses are
// written in small bursts and shouldn't wait on ACK coalescing) and TCP
// keepalive enabled, so dead peers are eventually noticed even without a
// pending read deadline. Platform-specific extras live in
// tuning_linux.go / tuning_darwin.go / tuning_other.go.
func tuneConnFd(fd int) {
	_ = syscall.SetsockoptInt(fd, syscall.IPPROTO_TCP, syscall.TCP_NODELAY, 1)
	_ = syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_KEEPALIVE, 1)
	applyPlatformConnOptions(fd)
}

// tuneListenerFd applies listener-side options, set once before Listen is
// called.
func tuneListenerFd(fd int) {
	_ = syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1)
	applyPlatformListenerOptions(fd)
}
