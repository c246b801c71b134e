package p2p

import (
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tendermint/ledgerd/libs/log"
)

type fakePoll struct {
	ready Readiness
	err   error
}

// fakePoller returns scripted notifications fed through ch. With auto set,
// every wait immediately reports auto instead. Otherwise an empty channel
// behaves like a short timeout.
type fakePoller struct {
	ch   chan fakePoll
	auto Readiness

	calls       int32
	inFlight    int32
	maxInFlight int32
	closed      int32
}

func newFakePoller() *fakePoller {
	return &fakePoller{ch: make(chan fakePoll, 64)}
}

func (p *fakePoller) wait(time.Duration) (Readiness, error) {
	atomic.AddInt32(&p.calls, 1)
	n := atomic.AddInt32(&p.inFlight, 1)
	defer atomic.AddInt32(&p.inFlight, -1)
	for {
		max := atomic.LoadInt32(&p.maxInFlight)
		if n <= max || atomic.CompareAndSwapInt32(&p.maxInFlight, max, n) {
			break
		}
	}

	if p.auto != 0 {
		time.Sleep(100 * time.Microsecond)
		return p.auto, nil
	}

	select {
	case next := <-p.ch:
		return next.ready, next.err
	case <-time.After(2 * time.Millisecond):
		return 0, nil
	}
}

func (p *fakePoller) close() error {
	atomic.StoreInt32(&p.closed, 1)
	return nil
}

func (p *fakePoller) numCalls() int { return int(atomic.LoadInt32(&p.calls)) }

type sentDatagram struct {
	buf  []byte
	addr *net.UDPAddr
}

// fakeConn records every successful send. sendResults scripts the outcome
// of successive sendTo calls; once exhausted, sends succeed.
type fakeConn struct {
	mtx         sync.Mutex
	sendResults []error
	attempts    int
	sent        []sentDatagram
}

func (c *fakeConn) sendTo(buf []byte, addr *net.UDPAddr) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.attempts++
	var err error
	if len(c.sendResults) > 0 {
		err = c.sendResults[0]
		c.sendResults = c.sendResults[1:]
	}
	if err == nil {
		cp := make([]byte, len(buf))
		copy(cp, buf)
		c.sent = append(c.sent, sentDatagram{buf: cp, addr: addr})
	}
	return err
}

func (c *fakeConn) recvFrom([]byte) (int, *net.UDPAddr, error) {
	return 0, nil, ErrWouldBlock
}

func (c *fakeConn) numSent() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return len(c.sent)
}

func (c *fakeConn) sentSince(i int) []sentDatagram {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	out := make([]sentDatagram, len(c.sent)-i)
	copy(out, c.sent[i:])
	return out
}

func udpAddr(t *testing.T, s string) *net.UDPAddr {
	t.Helper()
	addr, err := net.ResolveUDPAddr("udp", s)
	require.NoError(t, err)
	return addr
}

func newTestContext(
	t *testing.T,
	peers []*net.UDPAddr,
	opts ...ContextOption,
) (*Context, *fakeConn, *fakePoller, *BlockQueue) {
	t.Helper()

	conn := &fakeConn{}
	poller := newFakePoller()
	queue := NewBlockQueue()

	opts = append([]ContextOption{WithLogger(log.NewTestingLogger(t))}, opts...)
	c, err := newContext(udpAddr(t, "127.0.0.1:9000"), peers, queue, conn, poller, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c, conn, poller, queue
}
