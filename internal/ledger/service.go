package ledger

import (
	"errors"
	"fmt"
	"net"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/tendermint/ledgerd/config"
	"github.com/tendermint/ledgerd/internal/p2p"
	"github.com/tendermint/ledgerd/libs/log"
	"github.com/tendermint/ledgerd/types"
)

var (
	// ErrInvalidRequest is returned by ProcessRequest for request bytes that
	// do not carry a submit request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrPoolFull is returned when the pending pool has reached
	// max_pending_events.
	ErrPoolFull = errors.New("pending event pool is full")
)

var _ p2p.Handler = (*Service)(nil)

// ServiceOption sets an optional parameter on the Service.
type ServiceOption func(*Service)

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) ServiceOption {
	return func(s *Service) { s.metrics = metrics }
}

// Service is the event handler registered on the network context. It admits
// gossiped and submitted events once, relays them to peers and keeps them in
// a pending pool until the block producer reaps them.
type Service struct {
	logger  log.Logger
	metrics *Metrics
	config  *config.LedgerConfig

	// origin stamps submitted events that carry none.
	origin string

	// seen holds hashes of every event admitted recently, so that epidemic
	// relay terminates.
	seen *lru.Cache

	mtx     sync.Mutex
	pending []types.Event
}

// NewService returns an event service. origin is usually the node moniker.
func NewService(
	logger log.Logger,
	cfg *config.LedgerConfig,
	origin string,
	options ...ServiceOption,
) (*Service, error) {
	seen, err := lru.New(cfg.SeenCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating seen cache: %w", err)
	}

	s := &Service{
		logger:  logger,
		metrics: NopMetrics(),
		config:  cfg,
		origin:  origin,
		seen:    seen,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// ProcessEvent admits an event gossiped by a peer and relays it.
// Duplicates are dropped without error.
func (s *Service) ProcessEvent(netCtx *p2p.Context, ev types.Event, from net.Addr) error {
	if err := ev.ValidateBasic(); err != nil {
		s.metrics.InvalidEvents.Add(1)
		return err
	}

	admitted, err := s.admit(ev)
	if err != nil || !admitted {
		return err
	}

	s.logger.Debug("relaying event", "event", ev, "from", from)
	netCtx.Propagate(ev)
	return nil
}

// ProcessRequest decodes a submit request and treats the carried event as a
// new local event.
func (s *Service) ProcessRequest(netCtx *p2p.Context, req []byte) error {
	msg, err := types.DecodeMessage(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if msg.Request == nil || msg.Request.Submit == nil {
		return fmt.Errorf("%w: no submit request", ErrInvalidRequest)
	}

	ev := msg.Request.Submit.Clone()
	if ev.Origin == "" {
		ev.Origin = s.origin
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = types.Now()
	}
	if err := ev.ValidateBasic(); err != nil {
		s.metrics.InvalidEvents.Add(1)
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	admitted, err := s.admit(ev)
	if err != nil || !admitted {
		return err
	}

	s.logger.Info("accepted submitted event", "event", ev)
	netCtx.Propagate(ev)
	return nil
}

// admit records the event as seen and appends it to the pending pool.
// It reports false for an event seen before.
func (s *Service) admit(ev types.Event) (bool, error) {
	key := string(ev.Hash())

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if found, _ := s.seen.ContainsOrAdd(key, struct{}{}); found {
		s.metrics.DuplicateEvents.Add(1)
		return false, nil
	}
	if s.config.MaxPendingEvents > 0 && len(s.pending) >= s.config.MaxPendingEvents {
		// forget it so a later relay can be admitted once there is room
		s.seen.Remove(key)
		return false, ErrPoolFull
	}

	s.pending = append(s.pending, ev)
	s.metrics.EventsAdmitted.Add(1)
	s.metrics.PendingEvents.Set(float64(len(s.pending)))
	return true, nil
}

// Size returns the number of pending events.
func (s *Service) Size() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return len(s.pending)
}

// ReapMaxEvents removes and returns up to max pending events in admission
// order. A negative max reaps everything.
func (s *Service) ReapMaxEvents(max int) []types.Event {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	n := len(s.pending)
	if max >= 0 && max < n {
		n = max
	}
	if n == 0 {
		return nil
	}

	reaped := make([]types.Event, n)
	copy(reaped, s.pending[:n])
	s.pending = append(s.pending[:0], s.pending[n:]...)
	s.metrics.PendingEvents.Set(float64(len(s.pending)))
	return reaped
}
