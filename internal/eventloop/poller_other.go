//go:build !linux && !darwin

package eventloop

import (
	"sync"

	"golang.org/x/sys/unix"
)

// pollPoller is the portable fallback Poller for platforms without a
// native epoll or kqueue binding, built on unix.Poll. It re-scans its
// whole fd set on every Wait call, which is fine at this server's scale.
type pollPoller struct {
	mu        sync.Mutex
	writeable map[int]bool
	order     []int
}

// NewPoller returns the platform Poller.
func NewPoller() (Poller, error) {
	return &pollPoller{writeable: make(map[int]bool)}, nil
}

func (p *pollPoller) Add(fd int, writable bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.writeable[fd]; !exists {
		p.order = append(p.order, fd)
	}
	p.writeable[fd] = writable
	return nil
}

func (p *pollPoller) Modify(fd int, writable bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeable[fd] = writable
	return nil
}

func (p *pollPoller) Remove(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.writeable, fd)
	for i, f := range p.order {
		if f == fd {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return nil
}

func (p *pollPoller) Wait(timeoutMs int) ([]Event, error) {
	p.mu.Lock()
	fds := make([]unix.PollFd, 0, len(p.order))
	for _, fd := range p.order {
		events := int16(unix.POLLIN)
		if p.writeable[fd] {
			events |= unix.POLLOUT
		}
		fds = append(fds, unix.PollFd{Fd: int32(fd), Events: events})
	}
	p.mu.Unlock()

	if len(fds) == 0 {
		return nil, nil
	}

	n, err := unix.Poll(fds, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}

	out := make([]Event, 0, n)
	for _, pfd := range fds {
		if pfd.Revents == 0 {
			continue
		}
		out = append(out, Event{
			Fd:       int(pfd.Fd),
			Readable: pfd.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0,
			Writable: pfd.Revents&unix.POLLOUT != 0,
			Closed:   pfd.Revents&(unix.POLLHUP|unix.POLLERR) != 0,
		})
	}
	return out, nil
}

func (p *pollPoller) Close() error {
	return nil
}
