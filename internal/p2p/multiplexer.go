package p2p

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// pollTimeout bounds a single OS wait. A waiter whose readiness has not been
// observed when it elapses simply polls again.
const pollTimeout = 100 * time.Millisecond

// edgeMark is a snapshot of the edge counters taken before a non-blocking
// syscall. Waiting "since" a mark returns as soon as an edge of the wanted
// kind has been observed after the snapshot, even if that edge was
// delivered to a different waiter.
type edgeMark struct {
	read  uint64
	write uint64
}

// multiplexer owns the poller. At most one goroutine polls the OS at a time;
// every other waiter sleeps on cond and is woken after each poll round.
type multiplexer struct {
	poller  poller
	metrics *Metrics

	mtx     sync.Mutex
	cond    *sync.Cond
	polling bool
	reads   uint64
	writes  uint64
	err     error
}

func newMultiplexer(p poller, metrics *Metrics) *multiplexer {
	m := &multiplexer{poller: p, metrics: metrics}
	m.cond = sync.NewCond(&m.mtx)
	return m
}

func (m *multiplexer) mark() edgeMark {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return edgeMark{read: m.reads, write: m.writes}
}

// observedSince must be called with mtx held.
func (m *multiplexer) observedSince(want Readiness, since edgeMark) bool {
	if want.Has(Readable) && m.reads == since.read {
		return false
	}
	if want.Has(Writable) && m.writes == since.write {
		return false
	}
	return true
}

// waitSince blocks until every kind in want has seen an edge after since.
// It returns early only when ctx is done or the OS wait fails; a poll
// failure is sticky and reported to every current and future waiter.
func (m *multiplexer) waitSince(ctx context.Context, want Readiness, since edgeMark) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	for {
		if m.observedSince(want, since) {
			return nil
		}
		if m.err != nil {
			return m.err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if m.polling {
			m.cond.Wait()
			continue
		}

		m.polling = true
		m.mtx.Unlock()
		ready, err := m.poller.wait(pollTimeout)
		m.mtx.Lock()
		m.polling = false

		switch {
		case err != nil:
			m.err = fmt.Errorf("wait for socket readiness: %w", err)
		case ready == 0:
			m.metrics.PollTimeouts.Add(1)
		}
		if ready.Has(Readable) {
			m.reads++
		}
		if ready.Has(Writable) {
			m.writes++
		}
		m.cond.Broadcast()
	}
}

// mustWaitSince is waitSince for callers with no recovery path: a failed OS
// wait panics.
func (m *multiplexer) mustWaitSince(ctx context.Context, want Readiness, since edgeMark) {
	if err := m.waitSince(ctx, want, since); err != nil && ctx.Err() == nil {
		panic(err)
	}
}

func (m *multiplexer) close() error {
	return m.poller.close()
}
