package audio

import "math"

const (
	// silenceFloorRMS is the RMS below which a buffer is considered
	// near-silence and returned unchanged, to avoid amplifying noise floor.
	silenceFloorRMS = 0.001

	// maxGain caps amplification of very quiet signals.
	maxGain = 10.0
)

// Normalize scales samples toward targetRMS and returns a new slice.
// Near-silent input passes through unchanged. Samples that would exceed
// ±1.0 after amplification are soft-saturated with 1-e^-|x| instead of
// hard clipping, keeping the output inside (-1, 1).
func Normalize(samples []float32, targetRMS float32) []float32 {
	if len(samples) == 0 {
		return []float32{}
	}

	var sumsq float32
	for _, s := range samples {
		sumsq += s * s
	}
	currentRMS := float32(math.Sqrt(float64(sumsq / float32(len(samples)))))

	if currentRMS < silenceFloorRMS {
		out := make([]float32, len(samples))
		copy(out, samples)
		return out
	}

	gain := targetRMS / currentRMS
	if gain > maxGain {
		gain = maxGain
	}

	out := make([]float32, len(samples))
	for i, s := range samples {
		amplified := s * gain
		if abs := math.Abs(float64(amplified)); abs > 1.0 {
			sat := float32(1.0 - math.Exp(-abs))
			if amplified < 0 {
				sat = -sat
			}
			amplified = sat
		}
		out[i] = amplified
	}
	return out
}
