//go:build darwin

package eventloop

import (
	"golang.org/x/sys/unix"
)

// kqueuePoller wraps a kqueue instance. Read and write interest are
// tracked as separate filters since kqueue registers them independently,
// unlike epoll's single combined event mask.
type kqueuePoller struct {
	kq        int
	writeable map[int]bool
}

// NewPoller returns the platform Poller.
func NewPoller() (Poller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	return &kqueuePoller{kq: kq, writeable: make(map[int]bool)}, nil
}

func (p *kqueuePoller) Add(fd int, writable bool) error {
	changes := []unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_ADD | unix.EV_ENABLE},
	}
	if writable {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_ADD | unix.EV_ENABLE})
	}
	if _, err := unix.Kevent(p.kq, changes, nil, nil); err != nil {
		return err
	}
	p.writeable[fd] = writable
	return nil
}

func (p *kqueuePoller) Modify(fd int, writable bool) error {
	wasWritable := p.writeable[fd]
	if writable == wasWritable {
		return nil
	}
	flag := uint16(unix.EV_ADD | unix.EV_ENABLE)
	if !writable {
		flag = unix.EV_DELETE
	}
	_, err := unix.Kevent(p.kq, []unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flag},
	}, nil, nil)
	if err != nil {
		return err
	}
	p.writeable[fd] = writable
	return nil
}

func (p *kqueuePoller) Remove(fd int) error {
	delete(p.writeable, fd)
	changes := []unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE},
		{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE},
	}
	// Errors here are routine (filter was never registered); kqueue has no
	// bulk "remove whatever exists" primitive.
	_, _ = unix.Kevent(p.kq, changes, nil, nil)
	return nil
}

func (p *kqueuePoller) Wait(timeoutMs int) ([]Event, error) {
	raw := make([]unix.Kevent_t, 256)
	var tsPtr *unix.Timespec
	if timeoutMs >= 0 {
		ts := unix.NsecToTimespec(int64(timeoutMs) * int64(1e6))
		tsPtr = &ts
	}
	n, err := unix.Kevent(p.kq, nil, raw, tsPtr)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	byFd := make(map[int]*Event)
	order := make([]int, 0, n)
	for i := 0; i < n; i++ {
		e := raw[i]
		fd := int(e.Ident)
		ev, ok := byFd[fd]
		if !ok {
			ev = &Event{Fd: fd}
			byFd[fd] = ev
			order = append(order, fd)
		}
		if e.Filter == unix.EVFILT_READ {
			ev.Readable = true
		}
		if e.Filter == unix.EVFILT_WRITE {
			ev.Writable = true
		}
		if e.Flags&unix.EV_EOF != 0 {
			ev.Closed = true
			ev.Readable = true
		}
	}
	out := make([]Event, 0, len(order))
	for _, fd := range order {
		out = append(out, *byFd[fd])
	}
	return out, nil
}

func (p *kqueuePoller) Close() error {
	return unix.Close(p.kq)
}
