package p2p

import (
	"context"
	"net"

	"github.com/tendermint/ledgerd/libs/log"
	"github.com/tendermint/ledgerd/libs/service"
	"github.com/tendermint/ledgerd/types"
)

// MaxDatagramSize is the largest datagram the reactor reads. Larger ones are
// truncated by the OS and fail to decode.
const MaxDatagramSize = 64 * 1024

// Reactor drains the context's socket and dispatches every datagram:
// gossiped events go to HandleEvent, anything else is handed to
// HandleRequest as raw bytes.
type Reactor struct {
	*service.BaseService
	logger log.Logger

	netCtx *Context

	cancel context.CancelFunc
	done   chan struct{}
}

// NewReactor returns a reactor reading from netCtx.
func NewReactor(logger log.Logger, netCtx *Context) *Reactor {
	r := &Reactor{
		logger: logger,
		netCtx: netCtx,
	}
	r.BaseService = service.NewBaseService(logger, "Reactor", r)
	return r
}

func (r *Reactor) OnStart(ctx context.Context) error {
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	go r.recvRoutine(ctx)
	return nil
}

// OnStop cancels the receive routine and waits for it to exit, which takes
// at most one poll round.
func (r *Reactor) OnStop() {
	r.cancel()
	<-r.done
}

func (r *Reactor) recvRoutine(ctx context.Context) {
	defer close(r.done)

	buf := make([]byte, MaxDatagramSize)
	for {
		n, from, err := r.netCtx.Receive(ctx, buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.logger.Error("failed to read datagram", "err", err)
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		if err := r.dispatch(data, from); err != nil {
			r.netCtx.metrics.HandlerErrors.Add(1)
			r.logger.Debug("failed to handle datagram", "from", from, "err", err)
		}
	}
}

func (r *Reactor) dispatch(data []byte, from *net.UDPAddr) error {
	msg, err := types.DecodeMessage(data)
	if err == nil && msg.Event != nil {
		return r.netCtx.HandleEvent(*msg.Event, from)
	}
	return r.netCtx.HandleRequest(data)
}
