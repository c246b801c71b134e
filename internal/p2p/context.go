package p2p

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/tendermint/ledgerd/libs/log"
	tmrand "github.com/tendermint/ledgerd/libs/rand"
	"github.com/tendermint/ledgerd/types"
)

// DefaultGossipFanOut is the number of peers each event is gossiped to.
const DefaultGossipFanOut = 2

// ErrWouldBlock is reported by the socket when an operation cannot complete
// without blocking.
var ErrWouldBlock = errors.New("operation would block")

// datagramConn is the non-blocking socket surface the Context drives.
type datagramConn interface {
	sendTo(buf []byte, addr *net.UDPAddr) error
	recvFrom(buf []byte) (int, *net.UDPAddr, error)
}

// ContextOption sets an optional parameter on the Context.
type ContextOption func(*Context)

// WithLogger sets the logger.
func WithLogger(logger log.Logger) ContextOption {
	return func(c *Context) { c.logger = logger }
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) ContextOption {
	return func(c *Context) { c.metrics = metrics }
}

// WithFanOut overrides DefaultGossipFanOut. Values below one are ignored.
func WithFanOut(n int) ContextOption {
	return func(c *Context) {
		if n > 0 {
			c.fanOut = n
		}
	}
}

// WithRand sets the source used to pick gossip targets.
func WithRand(r *tmrand.Rand) ContextOption {
	return func(c *Context) { c.rand = r }
}

// Context is the networking context of a node. It owns one bound UDP socket
// and the readiness multiplexer polling it, knows the static peer set, and
// holds the sending half of the block announcement channel and the event
// handler.
//
// All methods are safe for concurrent use once RegisterHandler has been
// called (or skipped) during setup.
type Context struct {
	logger  log.Logger
	metrics *Metrics

	conn  *net.UDPConn
	sock  datagramConn
	mux   *multiplexer
	addr  *net.UDPAddr
	peers []*net.UDPAddr

	fanOut int
	rand   *tmrand.Rand

	blocksMtx sync.Mutex
	blocks    BlockSender

	handler atomic.Value // handlerBox

	closeOnce sync.Once
}

// NewContext binds a UDP socket to addr and registers it with the OS
// readiness facility for edge-triggered readable and writable
// notifications. Blocks announced through the context are sent to blocks.
func NewContext(
	addr *net.UDPAddr,
	peers []*net.UDPAddr,
	blocks BlockSender,
	opts ...ContextOption,
) (*Context, error) {
	if addr == nil {
		return nil, errors.New("nil listen address")
	}

	network := "udp4"
	if addr.IP != nil && addr.IP.To4() == nil {
		network = "udp6"
	}

	conn, err := net.ListenUDP(network, addr)
	if err != nil {
		return nil, fmt.Errorf("bind %v: %w", addr, err)
	}

	sock, err := newUDPSocket(conn)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("access socket of %v: %w", addr, err)
	}

	p, err := newPoller(sock.descriptor())
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("register %v with readiness poller: %w", addr, err)
	}

	c, err := newContext(conn.LocalAddr().(*net.UDPAddr), peers, blocks, sock, p, opts...)
	if err != nil {
		_ = p.close()
		_ = conn.Close()
		return nil, err
	}
	c.conn = conn
	return c, nil
}

func newContext(
	addr *net.UDPAddr,
	peers []*net.UDPAddr,
	blocks BlockSender,
	sock datagramConn,
	p poller,
	opts ...ContextOption,
) (*Context, error) {
	if blocks == nil {
		return nil, errors.New("nil block sender")
	}

	c := &Context{
		logger:  log.NewNopLogger(),
		metrics: NopMetrics(),
		sock:    sock,
		addr:    addr,
		peers:   make([]*net.UDPAddr, len(peers)),
		fanOut:  DefaultGossipFanOut,
		blocks:  blocks,
	}
	copy(c.peers, peers)
	c.handler.Store(handlerBox{NopHandler{}})

	for _, opt := range opts {
		opt(c)
	}
	if c.rand == nil {
		c.rand = tmrand.New()
	}
	c.mux = newMultiplexer(p, c.metrics)

	return c, nil
}

// Socket returns the bound socket, for collaborators that route datagrams
// themselves. It is nil for contexts not backed by a real socket.
func (c *Context) Socket() *net.UDPConn { return c.conn }

// Addr returns the local address the socket is bound to.
func (c *Context) Addr() *net.UDPAddr { return c.addr }

// Peers returns a copy of the peer address set.
func (c *Context) Peers() []*net.UDPAddr {
	peers := make([]*net.UDPAddr, len(c.peers))
	copy(peers, c.peers)
	return peers
}

// FanOut returns the number of peers each event is gossiped to.
func (c *Context) FanOut() int { return c.fanOut }

// RegisterHandler sets the event handler. It is meant to be called once
// during setup; a later call replaces the previous handler.
func (c *Context) RegisterHandler(h Handler) {
	if h == nil {
		h = NopHandler{}
	}
	c.handler.Store(handlerBox{h})
}

func (c *Context) getHandler() Handler {
	return c.handler.Load().(handlerBox).Handler
}

// HandleEvent passes an inbound event to the registered handler and returns
// the handler's error unchanged.
func (c *Context) HandleEvent(ev types.Event, from net.Addr) error {
	return c.getHandler().ProcessEvent(c, ev, from)
}

// HandleRequest passes raw request bytes to the registered handler and
// returns the handler's error unchanged.
func (c *Context) HandleRequest(req []byte) error {
	return c.getHandler().ProcessRequest(c, req)
}

// WaitForReadiness blocks until the socket reports the next edge of every
// readiness kind in r. A failing OS wait panics.
func (c *Context) WaitForReadiness(r Readiness) {
	c.mux.mustWaitSince(context.Background(), r, c.mux.mark())
}

// Send transmits buf to addr. A would-block condition is retried after the
// socket becomes writable, for as long as it persists. Any other error
// abandons the datagram without reporting it to the caller.
func (c *Context) Send(buf []byte, addr *net.UDPAddr) {
	for {
		mark := c.mux.mark()

		err := c.sock.sendTo(buf, addr)
		switch {
		case err == nil:
			c.metrics.DatagramsSent.Add(1)
			c.metrics.BytesSent.Add(float64(len(buf)))
			return

		case errors.Is(err, ErrWouldBlock):
			c.metrics.SendRetries.Add(1)
			c.mux.mustWaitSince(context.Background(), Writable, mark)

		default:
			// UDP is unacknowledged; the datagram is dropped.
			c.metrics.SendErrors.Add(1)
			c.logger.Debug("dropped datagram", "peer", addr, "err", err)
			return
		}
	}
}

// Receive reads the next datagram into buf, waiting for the socket to become
// readable as needed. It returns ctx.Err() once ctx is done.
func (c *Context) Receive(ctx context.Context, buf []byte) (int, *net.UDPAddr, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}

		mark := c.mux.mark()

		n, from, err := c.sock.recvFrom(buf)
		switch {
		case err == nil:
			c.metrics.DatagramsReceived.Add(1)
			c.metrics.BytesReceived.Add(float64(n))
			return n, from, nil

		case errors.Is(err, ErrWouldBlock):
			if err := c.mux.waitSince(ctx, Readable, mark); err != nil {
				if ctx.Err() != nil {
					return 0, nil, ctx.Err()
				}
				panic(err)
			}

		default:
			return 0, nil, err
		}
	}
}

// Propagate gossips ev to FanOut distinct peers chosen uniformly at random,
// or to every peer when there are fewer. An event that cannot be encoded is
// dropped.
func (c *Context) Propagate(ev types.Event) {
	bz, err := types.EncodeMessage(types.EventMessage(ev.Clone()))
	if err != nil {
		c.metrics.EncodeErrors.Add(1)
		c.logger.Error("dropped unencodable event", "kind", ev.Kind, "err", err)
		return
	}

	for _, idx := range c.rand.Sample(len(c.peers), c.fanOut) {
		c.Send(bz, c.peers[idx])
	}
	c.metrics.EventsPropagated.Add(1)
}

// AnnounceBlock hands a copy of b to the block pipeline. It panics if the
// pipeline has gone away.
func (c *Context) AnnounceBlock(b types.Block) {
	c.blocksMtx.Lock()
	defer c.blocksMtx.Unlock()

	if err := c.blocks.Send(b.Clone()); err != nil {
		panic(fmt.Errorf("announce block %d: %w", b.Height, err))
	}
	c.metrics.BlocksAnnounced.Add(1)
}

// Close releases the readiness poller and the socket. The context must not
// be used afterwards.
func (c *Context) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.mux.close()
		if c.conn != nil {
			if cerr := c.conn.Close(); err == nil {
				err = cerr
			}
		}
	})
	return err
}
