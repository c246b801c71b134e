package p2p_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/ledgerd/internal/p2p"
	"github.com/tendermint/ledgerd/internal/p2p/mocks"
	"github.com/tendermint/ledgerd/libs/log"
	"github.com/tendermint/ledgerd/types"
)

func loopback() *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
}

func newSocketContext(t *testing.T, peers ...*net.UDPAddr) *p2p.Context {
	t.Helper()

	c, err := p2p.NewContext(loopback(), peers, p2p.NewBlockQueue(), p2p.WithLogger(log.NewTestingLogger(t)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewContextBindsSocket(t *testing.T) {
	c := newSocketContext(t)

	require.NotNil(t, c.Socket())
	require.NotZero(t, c.Addr().Port)
	require.Equal(t, c.Socket().LocalAddr().String(), c.Addr().String())
	require.Empty(t, c.Peers())
}

func TestNewContextBindFailure(t *testing.T) {
	c := newSocketContext(t)

	_, err := p2p.NewContext(c.Addr(), nil, p2p.NewBlockQueue())
	require.Error(t, err)
}

func TestWaitForWritableOnFreshSocket(t *testing.T) {
	c := newSocketContext(t)

	done := make(chan struct{})
	go func() {
		c.WaitForReadiness(p2p.Writable)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("a fresh socket never reported writable")
	}
}

func TestHandlerErrorIsReturnedUnchanged(t *testing.T) {
	c := newSocketContext(t)

	errRejected := errors.New("event rejected")
	ev := types.NewEvent("transfer", []byte("x"))
	from := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9001}

	h := mocks.NewHandler(t)
	h.On("ProcessEvent", c, ev, from).Return(errRejected).Once()
	h.On("ProcessRequest", c, []byte("raw")).Return(errRejected).Once()
	c.RegisterHandler(h)

	require.Equal(t, errRejected, c.HandleEvent(ev, from))
	require.Equal(t, errRejected, c.HandleRequest([]byte("raw")))
}

func TestSendDeliversDatagram(t *testing.T) {
	peer, err := net.ListenUDP("udp4", loopback())
	require.NoError(t, err)
	defer peer.Close()

	c := newSocketContext(t)
	c.Send([]byte("ping"), peer.LocalAddr().(*net.UDPAddr))

	require.NoError(t, peer.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 16)
	n, from, err := peer.ReadFromUDP(buf)
	require.NoError(t, err)
	require.Equal(t, "ping", string(buf[:n]))
	require.Equal(t, c.Addr().Port, from.Port)
}

func TestReactorDispatchesGossip(t *testing.T) {
	defer leaktest.Check(t)()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	receiver := newSocketContext(t)
	sender := newSocketContext(t, receiver.Addr())

	gotEvent := make(chan types.Event, 1)
	gotRequest := make(chan []byte, 1)

	h := mocks.NewHandler(t)
	h.On("ProcessEvent", receiver, mock.AnythingOfType("types.Event"), mock.Anything).
		Run(func(args mock.Arguments) { gotEvent <- args.Get(1).(types.Event) }).
		Return(nil).Once()
	h.On("ProcessRequest", receiver, []byte("not an envelope")).
		Run(func(args mock.Arguments) { gotRequest <- args.Get(1).([]byte) }).
		Return(nil).Once()
	receiver.RegisterHandler(h)

	reactor := p2p.NewReactor(log.NewTestingLogger(t), receiver)
	require.NoError(t, reactor.Start(ctx))

	ev := types.NewEvent("transfer", []byte("alice->bob"))
	sender.Propagate(ev)

	select {
	case got := <-gotEvent:
		require.Equal(t, ev.Hash(), got.Hash())
	case <-time.After(2 * time.Second):
		t.Fatal("event was not dispatched")
	}

	sender.Send([]byte("not an envelope"), receiver.Addr())
	select {
	case got := <-gotRequest:
		require.Equal(t, "not an envelope", string(got))
	case <-time.After(2 * time.Second):
		t.Fatal("request was not dispatched")
	}

	require.NoError(t, reactor.Stop())
	require.False(t, reactor.IsRunning())
}
