//go:build linux
// +build linux

package p2p

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

type epollPoller struct {
	epfd   int
	fd     int
	events []unix.EpollEvent
}

func newPoller(fd int) (poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, os.NewSyscallError("epoll_create1", err)
	}

	ev := unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLOUT | unix.EPOLLET,
		Fd:     int32(fd),
	}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		_ = unix.Close(epfd)
		return nil, os.NewSyscallError("epoll_ctl", err)
	}

	return &epollPoller{
		epfd:   epfd,
		fd:     fd,
		events: make([]unix.EpollEvent, eventCapacity),
	}, nil
}

func (p *epollPoller) wait(timeout time.Duration) (Readiness, error) {
	n, err := unix.EpollWait(p.epfd, p.events, int(timeout/time.Millisecond))
	if err == unix.EINTR {
		return 0, nil
	}
	if err != nil {
		return 0, os.NewSyscallError("epoll_wait", err)
	}

	var ready Readiness
	for _, ev := range p.events[:n] {
		if int(ev.Fd) != p.fd {
			continue
		}
		// errors and hangups wake both sides so the next syscall surfaces them
		if ev.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			ready |= ReadWrite
		}
		if ev.Events&unix.EPOLLIN != 0 {
			ready |= Readable
		}
		if ev.Events&unix.EPOLLOUT != 0 {
			ready |= Writable
		}
	}
	return ready, nil
}

func (p *epollPoller) close() error {
	return unix.Close(p.epfd)
}
