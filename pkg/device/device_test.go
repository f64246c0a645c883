package device

import (
	"testing"

	"github.com/gen2brain/malgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceIDRoundTrip(t *testing.T) {
	var id malgo.DeviceID
	for i := range id {
		id[i] = byte(i)
	}

	decoded, err := DecodeID(EncodeID(id))
	require.NoError(t, err)
	assert.Equal(t, id, decoded)
}

func TestDecodeIDRejectsMalformedInput(t *testing.T) {
	_, err := DecodeID("not-hex")
	assert.Error(t, err)

	_, err = DecodeID("abcd")
	assert.Error(t, err, "truncated id must be rejected")
}
