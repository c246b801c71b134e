package p2p

import (
	"net"

	"github.com/tendermint/ledgerd/types"
)

//go:generate go run github.com/vektra/mockery/v2 --disable-version-string --case underscore --name Handler

// Handler is the single extension point of the networking context. The
// context hands itself to every call so the handler can gossip events or
// announce blocks in response.
type Handler interface {
	// ProcessEvent handles an event received from the peer at from.
	ProcessEvent(netCtx *Context, ev types.Event, from net.Addr) error

	// ProcessRequest handles raw request bytes that did not decode as a
	// gossiped event.
	ProcessRequest(netCtx *Context, req []byte) error
}

// NopHandler is the handler of a context nobody registered a handler with.
// It accepts everything and does nothing.
type NopHandler struct{}

var _ Handler = NopHandler{}

func (NopHandler) ProcessEvent(*Context, types.Event, net.Addr) error { return nil }

func (NopHandler) ProcessRequest(*Context, []byte) error { return nil }

// handlerBox gives atomic.Value a single concrete type to store.
type handlerBox struct {
	Handler
}
