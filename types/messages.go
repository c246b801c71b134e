package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidMessage is returned when a datagram does not carry exactly one
// known envelope variant.
var ErrInvalidMessage = errors.New("invalid message")

// Message is the tagged envelope carried by every datagram. Exactly one
// variant is set; it encodes as a single-key JSON object named after the
// variant, e.g. {"Event":{...}}.
type Message struct {
	Event   *Event   `json:"Event,omitempty"`
	Request *Request `json:"Request,omitempty"`
}

// Request is a client request sent to a node as raw request bytes.
type Request struct {
	// Submit asks the node to admit and gossip a new event.
	Submit *Event `json:"submit,omitempty"`
}

// EventMessage wraps an event for transmission.
func EventMessage(ev Event) Message {
	return Message{Event: &ev}
}

// SubmitRequest wraps a client event submission.
func SubmitRequest(ev Event) Message {
	return Message{Request: &Request{Submit: &ev}}
}

// EncodeMessage serializes the envelope.
func EncodeMessage(msg Message) ([]byte, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	return json.Marshal(msg)
}

// DecodeMessage parses a datagram into an envelope.
func DecodeMessage(bz []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(bz, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if err := msg.ValidateBasic(); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// ValidateBasic checks that exactly one variant is set.
func (m Message) ValidateBasic() error {
	switch {
	case m.Event != nil && m.Request != nil:
		return fmt.Errorf("%w: more than one variant set", ErrInvalidMessage)
	case m.Event == nil && m.Request == nil:
		return fmt.Errorf("%w: no variant set", ErrInvalidMessage)
	}
	return nil
}
