package eventloop

import (
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ValGSgit/webserv-sub000/internal/cgi"
	"github.com/ValGSgit/webserv-sub000/internal/config"
	"github.com/ValGSgit/webserv-sub000/internal/conn"
)

// Stats accumulates lifetime counters. Every increment happens on the
// loop's single goroutine, but the fields are atomics so a status
// endpoint or signal handler on another goroutine can read them safely.
type Stats struct {
	TotalConnections  atomic.Uint64
	ActiveConnections atomic.Int64
	ConnectionErrors  atomic.Uint64
}

// listener is one bound, listening raw socket.
type listener struct {
	fd   int
	port int
}

// Loop is the single-threaded readiness-driven event loop: one poller
// instance, one listening socket per configured virtual-server port, and
// every live Connection keyed by its file descriptor. Nothing here
// spawns a goroutine for connection I/O; the only other goroutines in the
// server are the short-lived CGI child-reaping goroutine inside
// internal/cgi and cmd/webserv's signal handler, which only calls Stop.
type Loop struct {
	poller    Poller
	listeners map[int]*listener // fd -> listener
	conns     map[int]*conn.Connection
	servers   []*config.ServerConfig
	executor  *cgi.Executor
	logger    *log.Logger

	lastSweep time.Time
	Stats     Stats

	stop chan struct{}
}

// NewLoop creates a Loop bound to servers. Call Listen once per server
// port before Run.
func NewLoop(servers []*config.ServerConfig, executor *cgi.Executor, logger *log.Logger) (*Loop, error) {
	poller, err := NewPoller()
	if err != nil {
		return nil, fmt.Errorf("eventloop: creating poller: %w", err)
	}
	return &Loop{
		poller:    poller,
		listeners: make(map[int]*listener),
		conns:     make(map[int]*conn.Connection),
		servers:   servers,
		executor:  executor,
		logger:    logger,
		lastSweep: time.Now(),
		stop:      make(chan struct{}),
	}, nil
}

// listenBacklog is the pending-connection queue depth passed to Listen.
const listenBacklog = 1024

// Listen opens a raw, non-blocking TCP listening socket on port and
// registers it with the poller.
func (lp *Loop) Listen(port int) error {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return fmt.Errorf("eventloop: socket: %w", err)
	}
	tuneListenerFd(fd)

	addr := &unix.SockaddrInet4{Port: port}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return fmt.Errorf("eventloop: bind :%d: %w", port, err)
	}
	if err := unix.Listen(fd, listenBacklog); err != nil {
		unix.Close(fd)
		return fmt.Errorf("eventloop: listen :%d: %w", port, err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return err
	}
	if err := lp.poller.Add(fd, false); err != nil {
		unix.Close(fd)
		return err
	}
	lp.listeners[fd] = &listener{fd: fd, port: port}
	if lp.logger != nil {
		lp.logger.Printf("eventloop: listening on :%d", port)
	}
	return nil
}

// Stop requests that Run return after the current iteration.
func (lp *Loop) Stop() {
	close(lp.stop)
}

// Run blocks, servicing readiness events and the periodic timeout sweep,
// until Stop is called or the poller reports a fatal error.
func (lp *Loop) Run() error {
	defer lp.poller.Close()
	for {
		select {
		case <-lp.stop:
			lp.closeAll()
			return nil
		default:
		}

		events, err := lp.poller.Wait(1000)
		if err != nil {
			return fmt.Errorf("eventloop: poller wait: %w", err)
		}
		for _, ev := range events {
			if l, ok := lp.listeners[ev.Fd]; ok {
				lp.acceptAll(l)
				continue
			}
			lp.service(ev)
		}

		if time.Since(lp.lastSweep) >= conn.SweepInterval {
			lp.sweep()
			lp.lastSweep = time.Now()
		}
	}
}

// acceptAll drains every connection currently pending on a ready
// listener — level-triggered backends would otherwise re-report it
// immediately, and edge-triggered ones would only report it once.
func (lp *Loop) acceptAll(l *listener) {
	for {
		fd, sa, err := unix.Accept(l.fd)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			if lp.logger != nil && err != unix.EINTR {
				lp.logger.Printf("eventloop: accept on :%d: %v", l.port, err)
				lp.Stats.ConnectionErrors.Add(1)
			}
			return
		}

		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(fd)
			continue
		}
		tuneConnFd(fd)

		c := conn.NewConnection(fd, remoteAddrString(sa), l.port, lp.servers, lp.executor, lp.logger)
		lp.conns[fd] = c
		lp.Stats.TotalConnections.Add(1)
		lp.Stats.ActiveConnections.Add(1)

		if err := lp.poller.Add(fd, false); err != nil {
			lp.removeConn(fd)
		}
	}
}

// remoteAddrString renders a unix.Sockaddr as "ip:port", the form the
// access log uses.
func remoteAddrString(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return fmt.Sprintf("%d.%d.%d.%d:%d", a.Addr[0], a.Addr[1], a.Addr[2], a.Addr[3], a.Port)
	case *unix.SockaddrInet6:
		return fmt.Sprintf("[%x]:%d", a.Addr, a.Port)
	default:
		return ""
	}
}

// service dispatches one readiness event to its connection.
func (lp *Loop) service(ev Event) {
	c, ok := lp.conns[ev.Fd]
	if !ok {
		return
	}

	disp := conn.DispositionNone
	if ev.Readable {
		disp = c.HandleReadable()
	}
	if disp != conn.DispositionClose && (ev.Writable || disp == conn.DispositionWantWrite) {
		disp = c.HandleWritable()
	}
	if ev.Closed && disp == conn.DispositionNone {
		disp = conn.DispositionClose
	}

	switch disp {
	case conn.DispositionClose:
		lp.removeConn(ev.Fd)
	case conn.DispositionWantWrite:
		if err := lp.poller.Modify(ev.Fd, true); err != nil {
			lp.removeConn(ev.Fd)
		}
	default:
		_ = lp.poller.Modify(ev.Fd, false)
	}
}

// sweep closes every connection that has exceeded one of its timeout
// budgets. This is the loop's only periodic housekeeping; there is no
// per-connection timer.
func (lp *Loop) sweep() {
	now := time.Now()
	for fd, c := range lp.conns {
		if c.Expired(now) {
			lp.removeConn(fd)
		}
	}
}

func (lp *Loop) removeConn(fd int) {
	c, ok := lp.conns[fd]
	if !ok {
		return
	}
	_ = lp.poller.Remove(fd)
	c.Close()
	delete(lp.conns, fd)
	lp.Stats.ActiveConnections.Add(-1)
}

func (lp *Loop) closeAll() {
	for fd := range lp.conns {
		lp.removeConn(fd)
	}
	for fd, l := range lp.listeners {
		_ = lp.poller.Remove(fd)
		unix.Close(l.fd)
	}
}
