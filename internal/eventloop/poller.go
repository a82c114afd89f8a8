// Package eventloop implements the single-threaded readiness multiplexer
// that drives every connection: registration, the accept/read/write/close
// dispatch, and the periodic timeout sweep. The concrete Poller is
// epoll on Linux, kqueue on Darwin, and a unix.Poll-based fallback
// elsewhere — selected at compile time the same way the teacher's socket
// package splits TCP tuning across tuning_linux.go/tuning_darwin.go.
package eventloop

// Event reports one fd's readiness.
type Event struct {
	Fd       int
	Readable bool
	Writable bool
	Closed   bool // peer hangup or error; treat as both readable and an error condition
}

// Poller is the minimal readiness-multiplexer contract the loop needs.
// Implementations are edge- or level-triggered; the loop only assumes
// "tells me when reading or writing wouldn't block", consistent with
// either discipline.
type Poller interface {
	// Add registers fd for read readiness, and for write readiness too if
	// writable is true.
	Add(fd int, writable bool) error
	// Modify changes fd's registered interest set.
	Modify(fd int, writable bool) error
	// Remove unregisters fd. Safe to call even if fd was never added.
	Remove(fd int) error
	// Wait blocks up to timeoutMs (0 = return immediately, -1 = forever)
	// and appends ready events to the returned slice.
	Wait(timeoutMs int) ([]Event, error)
	// Close releases the poller's own resources (e.g. the epoll fd).
	Close() error
}
