//go:build darwin || dragonfly || freebsd || netbsd || openbsd
// +build darwin dragonfly freebsd netbsd openbsd

package p2p

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

type kqueuePoller struct {
	kq     int
	fd     int
	events []unix.Kevent_t
}

func newPoller(fd int) (poller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, os.NewSyscallError("kqueue", err)
	}
	unix.CloseOnExec(kq)

	// EV_CLEAR gives edge-triggered semantics
	changes := make([]unix.Kevent_t, 2)
	unix.SetKevent(&changes[0], fd, unix.EVFILT_READ, unix.EV_ADD|unix.EV_CLEAR)
	unix.SetKevent(&changes[1], fd, unix.EVFILT_WRITE, unix.EV_ADD|unix.EV_CLEAR)
	if _, err := unix.Kevent(kq, changes, nil, nil); err != nil {
		_ = unix.Close(kq)
		return nil, os.NewSyscallError("kevent", err)
	}

	return &kqueuePoller{
		kq:     kq,
		fd:     fd,
		events: make([]unix.Kevent_t, eventCapacity),
	}, nil
}

func (p *kqueuePoller) wait(timeout time.Duration) (Readiness, error) {
	ts := unix.NsecToTimespec(int64(timeout))
	n, err := unix.Kevent(p.kq, nil, p.events, &ts)
	if err == unix.EINTR {
		return 0, nil
	}
	if err != nil {
		return 0, os.NewSyscallError("kevent", err)
	}

	var ready Readiness
	for _, ev := range p.events[:n] {
		if int(ev.Ident) != p.fd {
			continue
		}
		switch ev.Filter {
		case unix.EVFILT_READ:
			ready |= Readable
		case unix.EVFILT_WRITE:
			ready |= Writable
		}
	}
	return ready, nil
}

func (p *kqueuePoller) close() error {
	return unix.Close(p.kq)
}
