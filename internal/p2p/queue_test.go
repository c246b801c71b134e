package p2p

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tendermint/ledgerd/types"
)

func ctxWithTimeout(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestBlockQueueFIFO(t *testing.T) {
	q := NewBlockQueue()
	for h := int64(1); h <= 5; h++ {
		require.NoError(t, q.Send(types.Block{Height: h}))
	}
	require.Equal(t, 5, q.Len())

	for h := int64(1); h <= 5; h++ {
		b, err := q.Receive(ctxWithTimeout(t))
		require.NoError(t, err)
		require.Equal(t, h, b.Height)
	}
}

func TestBlockQueueReceiveBlocksUntilSend(t *testing.T) {
	q := NewBlockQueue()

	got := make(chan types.Block, 1)
	go func() {
		b, err := q.Receive(ctxWithTimeout(t))
		if err == nil {
			got <- b
		}
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, q.Send(types.Block{Height: 7}))

	select {
	case b := <-got:
		require.EqualValues(t, 7, b.Height)
	case <-time.After(time.Second):
		t.Fatal("receiver was not woken")
	}
}

func TestBlockQueueClose(t *testing.T) {
	q := NewBlockQueue()
	require.NoError(t, q.Send(types.Block{Height: 1}))

	q.Close()
	q.Close()

	select {
	case <-q.Closed():
	default:
		t.Fatal("Closed channel not closed")
	}
	require.ErrorIs(t, q.Send(types.Block{Height: 2}), ErrQueueClosed)
	_, err := q.Receive(ctxWithTimeout(t))
	require.ErrorIs(t, err, ErrQueueClosed)
}

func TestBlockQueueReceiveContext(t *testing.T) {
	q := NewBlockQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Receive(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
