//go:build !linux && !darwin && !dragonfly && !freebsd && !netbsd && !openbsd
// +build !linux,!darwin,!dragonfly,!freebsd,!netbsd,!openbsd

package p2p

import "net"

type udpSocket struct{}

func newUDPSocket(*net.UDPConn) (*udpSocket, error) { return nil, ErrUnsupportedPlatform }

func (s *udpSocket) descriptor() int { return -1 }

func (s *udpSocket) sendTo([]byte, *net.UDPAddr) error { return ErrUnsupportedPlatform }

func (s *udpSocket) recvFrom([]byte) (int, *net.UDPAddr, error) {
	return 0, nil, ErrUnsupportedPlatform
}

func newPoller(int) (poller, error) { return nil, ErrUnsupportedPlatform }
