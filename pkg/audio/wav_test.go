package audio

import (
	"encoding/base64"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeWAV(t *testing.T) {
	t.Run("empty buffer fails", func(t *testing.T) {
		_, err := EncodeWAV(44100, nil)
		assert.Error(t, err)
	})

	t.Run("sample rate zero fails", func(t *testing.T) {
		_, err := EncodeWAV(0, make([]float32, 64))
		assert.Error(t, err)
	})

	t.Run("sample rate above 96000 fails", func(t *testing.T) {
		_, err := EncodeWAV(100000, make([]float32, 64))
		assert.Error(t, err)
	})

	t.Run("valid input produces RIFF container", func(t *testing.T) {
		wav, err := EncodeWAV(44100, make([]float32, 1024))
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(wav), 44)
		assert.Equal(t, "RIFF", string(wav[0:4]))
		assert.Equal(t, "WAVE", string(wav[8:12]))
		assert.Equal(t, "fmt ", string(wav[12:16]))
		assert.Equal(t, "data", string(wav[36:40]))
	})

	t.Run("declared data size matches sample count", func(t *testing.T) {
		const n = 1600
		samples := make([]float32, n)
		for i := range samples {
			samples[i] = 0.5
		}
		wav, err := EncodeWAV(16000, samples)
		require.NoError(t, err)

		dataSize := binary.LittleEndian.Uint32(wav[40:44])
		assert.Equal(t, uint32(n*2), dataSize)
		assert.Equal(t, 44+n*2, len(wav))
	})

	t.Run("out-of-range samples are clamped", func(t *testing.T) {
		wav, err := EncodeWAV(16000, []float32{2.0, -2.0})
		require.NoError(t, err)

		pcm, rate, err := DecodeWAV(wav)
		require.NoError(t, err)
		assert.Equal(t, uint32(16000), rate)
		assert.Equal(t, int16(32767), pcm[0])
		assert.Equal(t, int16(-32767), pcm[1])
	})
}

func TestEncodeBase64(t *testing.T) {
	b64, err := EncodeBase64(16000, make([]float32, 256))
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(b64)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(raw[0:4]))
}

func TestDecodeWAVRoundTrip(t *testing.T) {
	samples := []float32{0.0, 0.25, -0.25, 1.0, -1.0}
	wav, err := EncodeWAV(22050, samples)
	require.NoError(t, err)

	pcm, rate, err := DecodeWAV(wav)
	require.NoError(t, err)
	assert.Equal(t, uint32(22050), rate)
	require.Len(t, pcm, len(samples))
	assert.Equal(t, int16(0), pcm[0])
	assert.InDelta(t, 0.25*32767, float64(pcm[1]), 1)
	assert.InDelta(t, -0.25*32767, float64(pcm[2]), 1)
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	_, _, err := DecodeWAV([]byte("not a wav"))
	assert.Error(t, err)

	wav, err := EncodeWAV(16000, []float32{0.1})
	require.NoError(t, err)
	wav[0] = 'X'
	_, _, err = DecodeWAV(wav)
	assert.Error(t, err)
}
