package bytes

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHexBytesJSON(t *testing.T) {
	type wrapper struct {
		Hash HexBytes `json:"hash"`
	}

	bz, err := json.Marshal(wrapper{Hash: HexBytes{0xde, 0xad, 0xbe, 0xef}})
	require.NoError(t, err)
	assert.Equal(t, `{"hash":"DEADBEEF"}`, string(bz))

	var w wrapper
	require.NoError(t, json.Unmarshal(bz, &w))
	assert.True(t, w.Hash.Equal([]byte{0xde, 0xad, 0xbe, 0xef}))

	// base64 is accepted as a fallback
	require.NoError(t, json.Unmarshal([]byte(`{"hash":"3q2+7w=="}`), &w))
	assert.Equal(t, "DEADBEEF", w.Hash.String())

	require.Error(t, json.Unmarshal([]byte(`{"hash":"not hex!"}`), &w))
}

func TestHexBytesCopyAndFormat(t *testing.T) {
	orig := HexBytes{1, 2, 3, 4}
	cp := orig.Copy()
	cp[0] = 9
	assert.EqualValues(t, 1, orig[0])
	assert.Nil(t, HexBytes(nil).Copy())

	assert.Equal(t, "01020304", fmt.Sprintf("%s", orig))
	assert.Equal(t, "010203", orig.ShortString())
	assert.Equal(t, "0102", HexBytes{1, 2}.ShortString())
}
