package futu

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	body := []byte(`{"c2s":{"time":1}}`)
	require.NoError(t, writeFrame(&buf, frame{ProtoID: protoKeepAlive, SerialNo: 7, Body: body}))
	assert.Equal(t, headerSize+len(body), buf.Len())
	assert.Equal(t, []byte("FT"), buf.Bytes()[:2])

	got, err := readFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, protoKeepAlive, got.ProtoID)
	assert.Equal(t, uint32(7), got.SerialNo)
	assert.Equal(t, body, got.Body)
}

func TestReadFrameRejectsCorruption(t *testing.T) {
	encode := func() []byte {
		var buf bytes.Buffer
		require.NoError(t, writeFrame(&buf, frame{ProtoID: protoQotSub, SerialNo: 1, Body: []byte(`{}`)}))
		return buf.Bytes()
	}

	t.Run("flag", func(t *testing.T) {
		raw := encode()
		raw[0] = 'X'
		_, err := readFrame(bytes.NewReader(raw))
		assert.ErrorIs(t, err, errBadHeaderFlag)
	})

	t.Run("checksum", func(t *testing.T) {
		raw := encode()
		raw[len(raw)-1] = ']'
		_, err := readFrame(bytes.NewReader(raw))
		assert.ErrorIs(t, err, errBodyChecksum)
	})

	t.Run("truncated body", func(t *testing.T) {
		raw := encode()
		_, err := readFrame(bytes.NewReader(raw[:len(raw)-1]))
		assert.Error(t, err)
	})
}
