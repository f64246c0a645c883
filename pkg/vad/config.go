// Package vad segments a live mono float32 sample stream into discrete
// speech utterances using energy-based voice activity detection.
package vad

import (
	"errors"
	"fmt"
)

// Config holds the tunable parameters of the segmenter. The defaults are
// tuned for system-audio speech capture: thresholds high enough to ignore
// clicks and fan noise while still catching short spoken answers.
type Config struct {
	// Enabled selects VAD segmentation; when false the capture runs in
	// continuous mode bounded by MaxRecordingDurationSecs.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// HopSize is the analysis frame length in samples.
	HopSize int `yaml:"hop_size" json:"hop_size"`

	// SensitivityRMS is the frame RMS above which a frame counts as speech.
	SensitivityRMS float32 `yaml:"sensitivity_rms" json:"sensitivity_rms"`

	// PeakThreshold is the frame peak magnitude above which a frame counts
	// as speech regardless of RMS.
	PeakThreshold float32 `yaml:"peak_threshold" json:"peak_threshold"`

	// SilenceChunks is the hangover: consecutive silent frames required
	// before an utterance is closed.
	SilenceChunks int `yaml:"silence_chunks" json:"silence_chunks"`

	// MinSpeechChunks is the minimum number of speech frames for an
	// utterance to be accepted rather than discarded as noise.
	MinSpeechChunks int `yaml:"min_speech_chunks" json:"min_speech_chunks"`

	// PreSpeechChunks sizes the look-back window (in frames) prepended to
	// each utterance so the onset is not clipped.
	PreSpeechChunks int `yaml:"pre_speech_chunks" json:"pre_speech_chunks"`

	// NoiseGateThreshold is the soft-knee gate threshold applied to every
	// sample before analysis.
	NoiseGateThreshold float32 `yaml:"noise_gate_threshold" json:"noise_gate_threshold"`

	// MaxRecordingDurationSecs bounds continuous-mode recordings.
	MaxRecordingDurationSecs uint64 `yaml:"max_recording_duration_secs" json:"max_recording_duration_secs"`
}

// DefaultConfig returns the standard segmenter tuning.
func DefaultConfig() Config {
	return Config{
		Enabled:                  true,
		HopSize:                  1024,
		SensitivityRMS:           0.012, // only real speech, not room tone
		PeakThreshold:            0.035, // filters clicks and key taps
		SilenceChunks:            45,    // ~1.0s of silence closes an utterance
		MinSpeechChunks:          7,     // ~0.16s, keeps short answers
		PreSpeechChunks:          12,    // ~0.27s look-back catches word onsets
		NoiseGateThreshold:       0.003,
		MaxRecordingDurationSecs: 180,
	}
}

// Validate checks that the configuration is coherent. It returns a joined
// error listing every violation found.
func (c Config) Validate() error {
	var errs []error

	if c.SensitivityRMS < 0.0 || c.SensitivityRMS > 1.0 {
		errs = append(errs, fmt.Errorf("sensitivity_rms must be in [0.0, 1.0], got %v", c.SensitivityRMS))
	}
	if c.MaxRecordingDurationSecs > 3600 {
		errs = append(errs, fmt.Errorf("max_recording_duration_secs must be <= 3600, got %d", c.MaxRecordingDurationSecs))
	}
	if c.HopSize <= 0 {
		errs = append(errs, fmt.Errorf("hop_size must be positive, got %d", c.HopSize))
	}
	if c.SilenceChunks <= 0 {
		errs = append(errs, fmt.Errorf("silence_chunks must be positive, got %d", c.SilenceChunks))
	}
	if c.MinSpeechChunks <= 0 {
		errs = append(errs, fmt.Errorf("min_speech_chunks must be positive, got %d", c.MinSpeechChunks))
	}
	if c.PreSpeechChunks < 0 {
		errs = append(errs, fmt.Errorf("pre_speech_chunks must not be negative, got %d", c.PreSpeechChunks))
	}

	return errors.Join(errs...)
}
