package p2p

import (
	"errors"
	"time"
)

// ErrUnsupportedPlatform is returned by NewContext on platforms without an
// epoll or kqueue readiness facility.
var ErrUnsupportedPlatform = errors.New("no socket readiness facility on this platform")

// eventCapacity is the number of OS notifications fetched per wait.
const eventCapacity = 1024

// poller is one OS readiness-notification instance with a single socket
// registered for edge-triggered readable and writable notifications.
type poller interface {
	// wait blocks until notifications arrive or the timeout elapses and
	// returns the readiness kinds reported for the registered socket. A
	// timeout returns an empty set and no error.
	wait(timeout time.Duration) (Readiness, error)

	close() error
}
