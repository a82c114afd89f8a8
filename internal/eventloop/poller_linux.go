//go:build linux

package eventloop

import (
	"golang.org/x/sys/unix"
)

// epollPoller wraps an epoll instance in level-triggered mode — simpler
// to reason about than edge-triggered for a learning-scale server, and
// the spec only requires the loop be internally consistent about which
// discipline it uses.
type epollPoller struct {
	epfd int
}

// NewPoller returns the platform Poller.
func NewPoller() (Poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollPoller{epfd: fd}, nil
}

func (p *epollPoller) interestMask(writable bool) uint32 {
	mask := uint32(unix.EPOLLIN)
	if writable {
		mask |= uint32(unix.EPOLLOUT)
	}
	return mask
}

func (p *epollPoller) Add(fd int, writable bool) error {
	ev := &unix.EpollEvent{Events: p.interestMask(writable), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, ev)
}

func (p *epollPoller) Modify(fd int, writable bool) error {
	ev := &unix.EpollEvent{Events: p.interestMask(writable), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, ev)
}

func (p *epollPoller) Remove(fd int) error {
	err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err == unix.ENOENT || err == unix.EBADF {
		return nil
	}
	return err
}

func (p *epollPoller) Wait(timeoutMs int) ([]Event, error) {
	raw := make([]unix.EpollEvent, 256)
	n, err := unix.EpollWait(p.epfd, raw, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	out := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		e := raw[i]
		out = append(out, Event{
			Fd:       int(e.Fd),
			Readable: e.Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0,
			Writable: e.Events&unix.EPOLLOUT != 0,
			Closed:   e.Events&(unix.EPOLLHUP|unix.EPOLLERR) != 0,
		})
	}
	return out, nil
}

func (p *epollPoller) Close() error {
	return unix.Close(p.epfd)
}
