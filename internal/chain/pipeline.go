package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/tendermint/ledgerd/internal/p2p"
	"github.com/tendermint/ledgerd/internal/store"
	"github.com/tendermint/ledgerd/libs/log"
	"github.com/tendermint/ledgerd/libs/service"
	"github.com/tendermint/ledgerd/types"
)

// ErrPrevHashMismatch is returned for a block that does not link to the
// stored tip.
var ErrPrevHashMismatch = errors.New("previous hash does not match the stored tip")

// BlockSource is the receiving end of the block announcement channel.
// *p2p.BlockQueue satisfies it.
type BlockSource interface {
	Receive(ctx context.Context) (types.Block, error)
	Close()
}

var _ BlockSource = (*p2p.BlockQueue)(nil)

// Pipeline consumes announced blocks in order, checks that each one extends
// the stored chain and persists it. Stopping the pipeline closes the block
// source, after which announcing panics.
type Pipeline struct {
	*service.BaseService
	logger log.Logger

	source   BlockSource
	store    *store.BlockStore
	metrics  *Metrics
	onReject func(block types.Block, tip *types.Block)

	cancel context.CancelFunc
	done   chan struct{}
}

// PipelineOption sets an optional parameter on the Pipeline.
type PipelineOption func(*Pipeline)

// WithRejectHook sets a function called from the consume routine with every
// rejected block and the stored tip at that moment.
func WithRejectHook(f func(block types.Block, tip *types.Block)) PipelineOption {
	return func(p *Pipeline) { p.onReject = f }
}

// NewPipeline returns a pipeline draining source into blockStore.
func NewPipeline(
	logger log.Logger,
	source BlockSource,
	blockStore *store.BlockStore,
	metrics *Metrics,
	options ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		logger:  logger,
		source:  source,
		store:   blockStore,
		metrics: metrics,
		done:    make(chan struct{}),
	}
	for _, opt := range options {
		opt(p)
	}
	p.BaseService = service.NewBaseService(logger, "Pipeline", p)
	return p
}

// OnStart implements service.Service.
func (p *Pipeline) OnStart(ctx context.Context) error {
	p.metrics.Height.Set(float64(p.store.Height()))

	ctx, p.cancel = context.WithCancel(ctx)
	go p.consumeRoutine(ctx)
	return nil
}

// OnStop implements service.Service.
func (p *Pipeline) OnStop() {
	p.cancel()
	<-p.done
	p.source.Close()
}

func (p *Pipeline) consumeRoutine(ctx context.Context) {
	defer close(p.done)

	for {
		block, err := p.source.Receive(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				p.logger.Debug("block source drained", "err", err)
			}
			return
		}

		if err := p.ApplyBlock(block); err != nil {
			p.metrics.BlocksRejected.Add(1)
			p.logger.Error("rejected block", "height", block.Height, "hash", block.Hash, "err", err)
			if p.onReject != nil {
				p.onReject(block, p.store.LoadTip())
			}
			continue
		}
	}
}

// ApplyBlock validates the block against the stored tip and saves it.
func (p *Pipeline) ApplyBlock(block types.Block) error {
	if err := block.ValidateBasic(); err != nil {
		return err
	}

	if tip := p.store.LoadTip(); tip != nil {
		if block.Height != tip.Height+1 {
			return fmt.Errorf("%w: wanted height %d, got %d", store.ErrNonContiguous, tip.Height+1, block.Height)
		}
		if !block.PrevHash.Equal(tip.Hash) {
			return fmt.Errorf("%w: block %d links to %v, tip is %v",
				ErrPrevHashMismatch, block.Height, block.PrevHash, tip.Hash)
		}
	}

	if err := p.store.SaveBlock(block); err != nil {
		return fmt.Errorf("saving block %d: %w", block.Height, err)
	}

	p.metrics.BlocksSaved.Add(1)
	p.metrics.Height.Set(float64(block.Height))
	p.metrics.BlockEvents.Add(float64(len(block.Events)))
	p.logger.Debug("saved block", "height", block.Height, "hash", block.Hash)
	return nil
}
