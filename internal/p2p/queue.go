package p2p

import (
	"context"
	"errors"
	"sync"

	"github.com/tendermint/ledgerd/types"
)

// ErrQueueClosed is returned when sending to, or receiving from, a block
// queue whose receiving end has been closed.
var ErrQueueClosed = errors.New("block queue closed")

// BlockSender is the sending half of the block announcement channel.
type BlockSender interface {
	// Send enqueues b without blocking on capacity. It fails only once the
	// receiving end is gone.
	Send(b types.Block) error
}

// BlockQueue is an unbounded multi-producer, single-consumer FIFO of
// blocks. Producers never block on capacity; the consumer blocks in Receive
// until a block arrives, the queue is closed, or its context is done.
type BlockQueue struct {
	mtx   sync.Mutex
	items []types.Block

	signal    chan struct{}
	closeCh   chan struct{}
	closeOnce sync.Once
}

var _ BlockSender = (*BlockQueue)(nil)

func NewBlockQueue() *BlockQueue {
	return &BlockQueue{
		signal:  make(chan struct{}, 1),
		closeCh: make(chan struct{}),
	}
}

func (q *BlockQueue) Send(b types.Block) error {
	q.mtx.Lock()
	select {
	case <-q.closeCh:
		q.mtx.Unlock()
		return ErrQueueClosed
	default:
	}
	q.items = append(q.items, b)
	q.mtx.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return nil
}

// Receive dequeues the oldest block. Only one goroutine may receive.
func (q *BlockQueue) Receive(ctx context.Context) (types.Block, error) {
	for {
		q.mtx.Lock()
		if len(q.items) > 0 {
			b := q.items[0]
			q.items[0] = types.Block{}
			q.items = q.items[1:]
			q.mtx.Unlock()
			return b, nil
		}
		q.mtx.Unlock()

		select {
		case <-q.signal:
		case <-q.closeCh:
			return types.Block{}, ErrQueueClosed
		case <-ctx.Done():
			return types.Block{}, ctx.Err()
		}
	}
}

// Len returns the number of queued blocks.
func (q *BlockQueue) Len() int {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	return len(q.items)
}

// Close drops the receiving end. Queued blocks are discarded and every
// later Send fails.
func (q *BlockQueue) Close() {
	q.closeOnce.Do(func() {
		q.mtx.Lock()
		defer q.mtx.Unlock()
		close(q.closeCh)
		q.items = nil
	})
}

// Closed returns a channel that's closed when the queue is closed.
func (q *BlockQueue) Closed() <-chan struct{} {
	return q.closeCh
}
