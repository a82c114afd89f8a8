// Package wire holds the small, reusable plumbing the event loop and the
// HTTP engine share: non-blocking fd setup, bounded read/write helpers,
// URL decoding, and MIME-type resolution.
package wire

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

// ErrWouldBlock wraps the underlying EAGAIN/EWOULDBLOCK so callers can
// errors.Is against a stable value regardless of platform constant.
var ErrWouldBlock = errors.New("wire: operation would block")

// SetNonblocking puts fd into non-blocking mode.
func SetNonblocking(fd int) error {
	return unix.SetNonblock(fd, true)
}

// Read fills buf from fd and reports how many bytes landed plus three
// booleans: wouldBlock (no data right now, try again later), peerClosed
// (orderly EOF), and fatal (an unrecoverable error — the connection must
// close). Read never blocks and never allocates.
func Read(fd int, buf []byte) (n int, wouldBlock, peerClosed, fatal bool) {
	nr, err := unix.Read(fd, buf)
	if nr > 0 {
		return nr, false, false, false
	}
	if nr == 0 && err == nil {
		return 0, false, true, false
	}
	if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
		return 0, true, false, false
	}
	if errors.Is(err, unix.EINTR) {
		return 0, true, false, false
	}
	return 0, false, false, true
}

// Write advances a send of buf[offset:] on fd and reports how many bytes
// were actually written plus wouldBlock/fatal. Write never blocks.
func Write(fd int, buf []byte, offset int) (n int, wouldBlock, fatal bool) {
	if offset >= len(buf) {
		return 0, false, false
	}
	nw, err := unix.Write(fd, buf[offset:])
	if nw > 0 {
		return nw, false, false
	}
	if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR) {
		return 0, true, false
	}
	if errors.Is(err, syscall.EPIPE) || errors.Is(err, unix.EPIPE) {
		// A half-closed peer is a recoverable condition for the server
		// process (SIGPIPE is ignored at startup); the connection just
		// closes silently.
		return 0, false, true
	}
	if err != nil {
		return 0, false, true
	}
	return 0, false, false
}
