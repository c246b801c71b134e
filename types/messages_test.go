package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventEnvelopeShape(t *testing.T) {
	ev := NewEvent("transfer", []byte("x"))

	bz, err := EncodeMessage(EventMessage(ev))
	require.NoError(t, err)
	assert.Regexp(t, `^\{"Event":\{"kind":"transfer",`, string(bz))

	bz, err = EncodeMessage(SubmitRequest(ev))
	require.NoError(t, err)
	assert.Regexp(t, `^\{"Request":\{"submit":\{`, string(bz))
}

func TestDecodeMessage(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		isEv  bool
		isReq bool
	}{
		{"event", `{"Event":{"kind":"k","payload":null,"timestamp":"2022-01-01T00:00:00Z"}}`, true, false},
		{"request", `{"Request":{"submit":{"kind":"k","payload":"AQI=","timestamp":"2022-01-01T00:00:00Z"}}}`, false, true},
		{"both", `{"Event":{"kind":"k"},"Request":{}}`, false, false},
		{"neither", `{}`, false, false},
		{"unknown variant", `{"Block":{}}`, false, false},
		{"garbage", `not json`, false, false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			msg, err := DecodeMessage([]byte(tc.input))
			if !tc.isEv && !tc.isReq {
				require.ErrorIs(t, err, ErrInvalidMessage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.isEv, msg.Event != nil)
			assert.Equal(t, tc.isReq, msg.Request != nil)
		})
	}
}

func TestEncodeMessageRejectsEmptyEnvelope(t *testing.T) {
	_, err := EncodeMessage(Message{})
	require.ErrorIs(t, err, ErrInvalidMessage)
}
