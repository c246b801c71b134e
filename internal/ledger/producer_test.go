package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/ledgerd/libs/log"
	"github.com/tendermint/ledgerd/types"
)

type recordingAnnouncer struct {
	mtx    sync.Mutex
	blocks []types.Block
}

func (r *recordingAnnouncer) AnnounceBlock(b types.Block) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.blocks = append(r.blocks, b.Clone())
}

func (r *recordingAnnouncer) announced() []types.Block {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return append([]types.Block(nil), r.blocks...)
}

func TestProduceSkipsEmptyPool(t *testing.T) {
	svc, _, _ := newTestService(t)
	ann := &recordingAnnouncer{}
	p := NewProducer(log.NewTestingLogger(t), svc, ann, nil, time.Hour, 10, NopMetrics())

	assert.Nil(t, p.produce())
	assert.Empty(t, ann.announced())
}

func TestProduceChainsBlocks(t *testing.T) {
	svc, netCtx, _ := newTestService(t)
	ann := &recordingAnnouncer{}
	p := NewProducer(log.NewTestingLogger(t), svc, ann, nil, time.Hour, 2, NopMetrics())

	for _, kind := range []string{"a", "b", "c"} {
		require.NoError(t, netCtx.HandleEvent(types.NewEvent(kind, nil), nil))
	}

	first := p.produce()
	require.NotNil(t, first)
	assert.EqualValues(t, 1, first.Height)
	assert.Empty(t, first.PrevHash)
	assert.Len(t, first.Events, 2)

	second := p.produce()
	require.NotNil(t, second)
	assert.EqualValues(t, 2, second.Height)
	assert.Equal(t, first.Hash, second.PrevHash)
	assert.Len(t, second.Events, 1)

	assert.Nil(t, p.produce())

	blocks := ann.announced()
	require.Len(t, blocks, 2)
	for _, b := range blocks {
		require.NoError(t, b.ValidateBasic())
	}
}

func TestProducerContinuesFromTip(t *testing.T) {
	svc, netCtx, _ := newTestService(t)
	ann := &recordingAnnouncer{}

	tip := types.MakeBlock(nil, []types.Event{types.NewEvent("genesis", nil)})
	p := NewProducer(log.NewTestingLogger(t), svc, ann, &tip, time.Hour, 10, NopMetrics())

	require.NoError(t, netCtx.HandleEvent(types.NewEvent("next", nil), nil))
	b := p.produce()
	require.NotNil(t, b)
	assert.EqualValues(t, 2, b.Height)
	assert.Equal(t, tip.Hash, b.PrevHash)
}

func TestProducerService(t *testing.T) {
	defer leaktest.Check(t)()

	svc, netCtx, _ := newTestService(t)
	ann := &recordingAnnouncer{}
	p := NewProducer(log.NewTestingLogger(t), svc, ann, nil, 10*time.Millisecond, 100, NopMetrics())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, p.Start(ctx))

	require.NoError(t, netCtx.HandleEvent(types.NewEvent("tick", nil), nil))
	require.Eventually(t, func() bool {
		return len(ann.announced()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, p.Stop())
	assert.False(t, p.IsRunning())
	assert.Zero(t, svc.Size())
}

func TestProducerRewindsAfterRejection(t *testing.T) {
	svc, netCtx, _ := newTestService(t)
	ann := &recordingAnnouncer{}
	p := NewProducer(log.NewTestingLogger(t), svc, ann, nil, time.Hour, 1, NopMetrics())

	produce := func(kind string) *types.Block {
		t.Helper()
		require.NoError(t, netCtx.HandleEvent(types.NewEvent(kind, nil), nil))
		b := p.produce()
		require.NotNil(t, b)
		return b
	}

	b1, b2, b3 := produce("a"), produce("b"), produce("c")
	require.EqualValues(t, 3, b3.Height)

	// b2 fails to persist; b3 was already announced on top of it
	p.BlockRejected(*b2, b1)
	p.BlockRejected(*b3, b1)

	next := produce("d")
	assert.EqualValues(t, 2, next.Height)
	assert.Equal(t, b1.Hash, next.PrevHash)

	// a later rejection rewinds again
	p.BlockRejected(*next, b1)
	again := produce("e")
	assert.EqualValues(t, 2, again.Height)
	assert.Equal(t, b1.Hash, again.PrevHash)

	// rejection on an empty store restarts the chain
	p.BlockRejected(*again, nil)
	first := produce("f")
	assert.EqualValues(t, 1, first.Height)
	assert.Empty(t, first.PrevHash)
}
