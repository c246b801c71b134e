package types

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	tmbytes "github.com/tendermint/ledgerd/libs/bytes"
)

const (
	// MaxEventKindLength bounds the event kind tag.
	MaxEventKindLength = 64
	// MaxEventPayloadBytes keeps a single gossiped event well inside one
	// UDP datagram once the JSON envelope is added.
	MaxEventPayloadBytes = 32 * 1024
)

// ErrInvalidEvent is returned by ValidateBasic for malformed events.
var ErrInvalidEvent = errors.New("invalid event")

// Event is the unit of domain data the node gossips. The networking layer
// never interprets it; it only clones, serializes and forwards it.
type Event struct {
	Kind      string    `json:"kind"`
	Origin    string    `json:"origin,omitempty"`
	Payload   []byte    `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent returns an event of the given kind stamped with the current time.
func NewEvent(kind string, payload []byte) Event {
	return Event{
		Kind:      kind,
		Payload:   payload,
		Timestamp: Now(),
	}
}

// Hash returns the sha256 of the event's JSON encoding. Events are
// deduplicated by this value.
func (e Event) Hash() tmbytes.HexBytes {
	bz, err := json.Marshal(e)
	if err != nil {
		// an Event contains only JSON-safe fields
		panic(fmt.Errorf("marshal event: %w", err))
	}
	sum := sha256.Sum256(bz)
	return sum[:]
}

// Clone returns a deep copy of the event.
func (e Event) Clone() Event {
	cp := e
	if e.Payload != nil {
		cp.Payload = make([]byte, len(e.Payload))
		copy(cp.Payload, e.Payload)
	}
	return cp
}

// ValidateBasic performs stateless validation of the event.
func (e Event) ValidateBasic() error {
	if e.Kind == "" {
		return fmt.Errorf("%w: empty kind", ErrInvalidEvent)
	}
	if len(e.Kind) > MaxEventKindLength {
		return fmt.Errorf("%w: kind longer than %d bytes", ErrInvalidEvent, MaxEventKindLength)
	}
	if len(e.Payload) > MaxEventPayloadBytes {
		return fmt.Errorf("%w: payload of %d bytes exceeds %d", ErrInvalidEvent, len(e.Payload), MaxEventPayloadBytes)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidEvent)
	}
	// the JSON encoding of time.Time only covers these years
	if y := e.Timestamp.Year(); y < 0 || y > 9999 {
		return fmt.Errorf("%w: timestamp year %d outside [0,9999]", ErrInvalidEvent, y)
	}
	return nil
}

// String returns a short human readable form, for logs.
func (e Event) String() string {
	return fmt.Sprintf("Event{%s %s %dB}", e.Kind, e.Hash().ShortString(), len(e.Payload))
}
