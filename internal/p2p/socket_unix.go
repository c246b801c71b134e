//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd
// +build linux darwin dragonfly freebsd netbsd openbsd

package p2p

import (
	"fmt"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// udpSocket issues raw non-blocking sendto/recvfrom calls on the descriptor
// of a bound *net.UDPConn, bypassing the runtime's own blocking wait so that
// would-block surfaces to the caller.
type udpSocket struct {
	raw syscall.RawConn
	fd  int
}

func newUDPSocket(conn *net.UDPConn) (*udpSocket, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return nil, err
	}

	s := &udpSocket{raw: raw}
	if err := raw.Control(func(fd uintptr) { s.fd = int(fd) }); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *udpSocket) descriptor() int { return s.fd }

func (s *udpSocket) sendTo(buf []byte, addr *net.UDPAddr) error {
	sa, err := toSockaddr(addr)
	if err != nil {
		return err
	}

	var opErr error
	if err := s.raw.Write(func(fd uintptr) bool {
		opErr = unix.Sendto(int(fd), buf, 0, sa)
		return true
	}); err != nil {
		return err
	}
	if opErr == unix.EAGAIN || opErr == unix.EWOULDBLOCK {
		return ErrWouldBlock
	}
	return opErr
}

func (s *udpSocket) recvFrom(buf []byte) (int, *net.UDPAddr, error) {
	var (
		n     int
		from  unix.Sockaddr
		opErr error
	)
	if err := s.raw.Read(func(fd uintptr) bool {
		n, from, opErr = unix.Recvfrom(int(fd), buf, 0)
		return true
	}); err != nil {
		return 0, nil, err
	}
	if opErr == unix.EAGAIN || opErr == unix.EWOULDBLOCK {
		return 0, nil, ErrWouldBlock
	}
	if opErr != nil {
		return 0, nil, opErr
	}
	return n, fromSockaddr(from), nil
}

func toSockaddr(addr *net.UDPAddr) (unix.Sockaddr, error) {
	if addr == nil {
		return nil, fmt.Errorf("nil destination address")
	}
	if ip4 := addr.IP.To4(); ip4 != nil {
		sa := &unix.SockaddrInet4{Port: addr.Port}
		copy(sa.Addr[:], ip4)
		return sa, nil
	}
	if ip6 := addr.IP.To16(); ip6 != nil {
		sa := &unix.SockaddrInet6{Port: addr.Port}
		copy(sa.Addr[:], ip6)
		if addr.Zone != "" {
			if ifi, err := net.InterfaceByName(addr.Zone); err == nil {
				sa.ZoneId = uint32(ifi.Index)
			}
		}
		return sa, nil
	}
	return nil, fmt.Errorf("invalid destination address %v", addr)
}

func fromSockaddr(sa unix.Sockaddr) *net.UDPAddr {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.UDPAddr{IP: net.IPv4(sa.Addr[0], sa.Addr[1], sa.Addr[2], sa.Addr[3]), Port: sa.Port}
	case *unix.SockaddrInet6:
		ip := make(net.IP, net.IPv6len)
		copy(ip, sa.Addr[:])
		addr := &net.UDPAddr{IP: ip, Port: sa.Port}
		if sa.ZoneId != 0 {
			if ifi, err := net.InterfaceByIndex(int(sa.ZoneId)); err == nil {
				addr.Zone = ifi.Name
			}
		}
		return addr
	}
	return nil
}
