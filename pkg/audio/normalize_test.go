package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Run("empty input returns empty", func(t *testing.T) {
		assert.Empty(t, Normalize(nil, 0.1))
		assert.Empty(t, Normalize([]float32{}, 0.1))
	})

	t.Run("near-silence passes through unchanged", func(t *testing.T) {
		samples := make([]float32, 256)
		for i := range samples {
			samples[i] = 0.0001
		}
		out := Normalize(samples, 0.1)
		assert.Equal(t, samples, out)
	})

	t.Run("output RMS reaches target", func(t *testing.T) {
		samples := make([]float32, 1024)
		for i := range samples {
			samples[i] = 0.5
		}
		out := Normalize(samples, 0.1)

		var sumsq float64
		for _, s := range out {
			sumsq += float64(s) * float64(s)
		}
		rms := math.Sqrt(sumsq / float64(len(out)))
		assert.InDelta(t, 0.1, rms, 0.01)
	})

	t.Run("gain is capped at 10x", func(t *testing.T) {
		// current RMS 0.002, target 0.1: raw gain would be 50.
		samples := make([]float32, 1024)
		for i := range samples {
			samples[i] = 0.002
		}
		out := Normalize(samples, 0.1)
		for _, s := range out {
			assert.InDelta(t, 0.02, s, 0.001)
		}
	})

	t.Run("loud signal soft-saturates below one", func(t *testing.T) {
		// Mixed amplitudes so the gain pushes the loud samples past 1.0.
		samples := make([]float32, 1024)
		for i := range samples {
			if i%2 == 0 {
				samples[i] = 0.9
			} else {
				samples[i] = 0.1
			}
		}
		out := Normalize(samples, 0.8)
		for _, s := range out {
			assert.LessOrEqual(t, float64(math.Abs(float64(s))), 1.0+1e-6)
		}
	})

	t.Run("negative samples saturate symmetrically", func(t *testing.T) {
		samples := []float32{0.9, -0.9, 0.1, -0.1}
		out := Normalize(samples, 0.8)
		assert.InDelta(t, float64(out[0]), float64(-out[1]), 1e-6)
		assert.Less(t, out[1], float32(0))
	})
}
