package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGate(t *testing.T) {
	t.Run("silence stays zero", func(t *testing.T) {
		assert.Equal(t, float32(0), Gate(0, 0.01))
	})

	t.Run("below threshold is attenuated", func(t *testing.T) {
		out := Gate(0.05, 0.1)
		assert.Less(t, out, float32(0.05))
		assert.Greater(t, out, float32(0))
	})

	t.Run("negative samples keep their sign", func(t *testing.T) {
		out := Gate(-0.05, 0.1)
		assert.Less(t, out, float32(0))
		assert.Greater(t, out, float32(-0.05))
	})

	t.Run("at or above threshold passes through", func(t *testing.T) {
		for _, s := range []float32{0.1, 0.5, 1.0, -0.2} {
			assert.Equal(t, s, Gate(s, 0.1))
		}
	})

	t.Run("zero threshold passes everything", func(t *testing.T) {
		// abs < 0.0 is never true, so the knee is never applied.
		for _, s := range []float32{0.1, -0.5, 0.0} {
			assert.Equal(t, s, Gate(s, 0))
		}
	})
}

func TestGateFrame(t *testing.T) {
	in := []float32{0.05, -0.05, 0.5}
	out := GateFrame(in, 0.1)

	assert.Len(t, out, len(in))
	assert.Less(t, out[0], in[0])
	assert.Greater(t, out[1], in[1])
	assert.Equal(t, in[2], out[2])
	// Input must not be modified.
	assert.Equal(t, float32(0.05), in[0])
}

func TestMetrics(t *testing.T) {
	t.Run("all-zero frame", func(t *testing.T) {
		rms, peak := Metrics(make([]float32, 128))
		assert.Equal(t, float32(0), rms)
		assert.Equal(t, float32(0), peak)
	})

	t.Run("constant frame equals amplitude", func(t *testing.T) {
		frame := make([]float32, 256)
		for i := range frame {
			frame[i] = 0.5
		}
		rms, peak := Metrics(frame)
		assert.InDelta(t, 0.5, rms, 0.001)
		assert.InDelta(t, 0.5, peak, 0.001)
	})

	t.Run("single impulse", func(t *testing.T) {
		frame := make([]float32, 1024)
		frame[0] = 1.0
		rms, peak := Metrics(frame)
		assert.InDelta(t, 1.0, peak, 1e-6)
		assert.InDelta(t, 1.0/math.Sqrt(1024), rms, 0.001)
	})

	t.Run("sine wave RMS is amplitude over sqrt2", func(t *testing.T) {
		const (
			n         = 44100
			amplitude = 0.8
			freq      = 440.0
			rate      = 44100.0
		)
		frame := make([]float32, n)
		for i := range frame {
			frame[i] = float32(amplitude * math.Sin(2*math.Pi*freq*float64(i)/rate))
		}
		rms, _ := Metrics(frame)
		expected := amplitude / math.Sqrt2
		assert.InDelta(t, expected, rms, expected*0.01)
	})
}
