// Package audio provides the sample-level processing used by the capture
// pipeline: noise gating, frame metrics, loudness normalization, pre-speech
// ring buffering and WAV encoding. All functions operate on mono float32
// samples in the range [-1, 1].
package audio

import "math"

// kneeRatio is the compression ratio of the soft knee below the gate
// threshold. A ratio of 3 gives a cube-root attenuation curve.
const kneeRatio = 3.0

// Gate applies a soft-knee noise gate to a single sample. Samples whose
// magnitude is below threshold are attenuated smoothly rather than muted,
// preserving sign. A threshold of 0 passes every sample through unchanged.
func Gate(sample, threshold float32) float32 {
	abs := float32(math.Abs(float64(sample)))
	if abs < threshold {
		return sample * float32(math.Pow(float64(abs/threshold), 1.0/kneeRatio))
	}
	return sample
}

// GateFrame applies Gate to every sample of frame and returns a new slice.
// The input slice is not modified.
func GateFrame(frame []float32, threshold float32) []float32 {
	out := make([]float32, len(frame))
	for i, s := range frame {
		out[i] = Gate(s, threshold)
	}
	return out
}

// Metrics computes the RMS energy and peak magnitude of a frame.
// The frame must be non-empty.
func Metrics(frame []float32) (rms, peak float32) {
	var sumsq float32
	for _, v := range frame {
		a := float32(math.Abs(float64(v)))
		if a > peak {
			peak = a
		}
		sumsq += v * v
	}
	rms = float32(math.Sqrt(float64(sumsq / float32(len(frame)))))
	return rms, peak
}
