package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/tendermint/ledgerd/internal/p2p"
	"github.com/tendermint/ledgerd/libs/log"
	"github.com/tendermint/ledgerd/libs/service"
	"github.com/tendermint/ledgerd/types"
)

// BlockAnnouncer hands finished blocks to the block pipeline.
// *p2p.Context satisfies it.
type BlockAnnouncer interface {
	AnnounceBlock(types.Block)
}

var _ BlockAnnouncer = (*p2p.Context)(nil)

// Producer periodically reaps the pending pool into the next block and
// announces it. Ticks that find the pool empty produce nothing.
type Producer struct {
	*service.BaseService
	logger log.Logger

	pool      *Service
	announcer BlockAnnouncer
	metrics   *Metrics
	interval  time.Duration
	maxEvents int

	mtx sync.Mutex
	// last is the most recently announced block, or the chain tip the
	// producer was started from or rewound to.
	last *types.Block
	// rewindTo is the stored tip the next block must extend, set after a
	// block was rejected.
	rewindTo   *types.Block
	needRewind bool
	// staleHash is the newest block announced before the rewind. Blocks up
	// to and including it are rejected too and are ignored.
	staleHash []byte

	cancel context.CancelFunc
	done   chan struct{}
}

// NewProducer returns a producer that continues the chain after last, which
// is nil for an empty chain.
func NewProducer(
	logger log.Logger,
	pool *Service,
	announcer BlockAnnouncer,
	last *types.Block,
	interval time.Duration,
	maxEvents int,
	metrics *Metrics,
) *Producer {
	p := &Producer{
		logger:    logger,
		pool:      pool,
		announcer: announcer,
		metrics:   metrics,
		interval:  interval,
		maxEvents: maxEvents,
		done:      make(chan struct{}),
	}
	if last != nil {
		tip := last.Clone()
		p.last = &tip
	}
	p.BaseService = service.NewBaseService(logger, "Producer", p)
	return p
}

// OnStart implements service.Service.
func (p *Producer) OnStart(ctx context.Context) error {
	ctx, p.cancel = context.WithCancel(ctx)
	go p.produceRoutine(ctx)
	return nil
}

// OnStop implements service.Service.
func (p *Producer) OnStop() {
	p.cancel()
	<-p.done
}

func (p *Producer) produceRoutine(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.produce()
		}
	}
}

// produce builds and announces one block if there are pending events.
// It returns the block, or nil when nothing was produced.
func (p *Producer) produce() *types.Block {
	events := p.pool.ReapMaxEvents(p.maxEvents)
	if len(events) == 0 {
		return nil
	}

	p.mtx.Lock()
	defer p.mtx.Unlock()

	if p.needRewind {
		p.last, p.rewindTo, p.needRewind = p.rewindTo, nil, false
		p.logger.Info("rewound to stored tip", "height", p.height())
	}

	block := types.MakeBlock(p.last, events)
	p.announcer.AnnounceBlock(block)
	p.last = &block

	p.metrics.BlocksProduced.Add(1)
	p.metrics.BlockEvents.Observe(float64(len(events)))
	p.logger.Info("produced block", "height", block.Height, "hash", block.Hash, "events", len(events))
	return &block
}

// BlockRejected tells the producer that the pipeline refused block, leaving
// tip as the stored chain tip. The next block extends tip. Blocks announced
// before the rewind are refused as well and do not rewind again.
func (p *Producer) BlockRejected(block types.Block, tip *types.Block) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if p.staleHash != nil {
		if block.Hash.Equal(p.staleHash) {
			p.staleHash = nil
		}
		return
	}

	if tip != nil {
		cp := tip.Clone()
		tip = &cp
	}
	p.rewindTo, p.needRewind = tip, true
	if p.last != nil && !p.last.Hash.Equal(block.Hash) {
		p.staleHash = p.last.Hash.Copy()
	}
	p.logger.Error("block rejected; rewinding", "height", block.Height, "events", len(block.Events))
}

func (p *Producer) height() int64 {
	if p.last == nil {
		return 0
	}
	return p.last.Height
}
