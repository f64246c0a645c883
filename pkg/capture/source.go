// Package capture owns the lifecycle of audio capture sessions: it
// validates configuration, guarantees at most one active session, runs
// either VAD segmentation or bounded continuous accumulation over a live
// sample stream, and publishes lifecycle notifications on the event bus.
package capture

// SampleSource is an open audio stream yielding mono float32 samples.
// The channel closes when the underlying device session ends. Both the
// VAD and continuous consumers read from the same abstraction, so frame
// chunking is implemented exactly once.
type SampleSource interface {
	// SampleRate reports the stream's sample rate in Hz.
	SampleRate() uint32

	// Samples returns the stream. The producer never blocks on a slow
	// consumer; it is allowed to drop samples instead.
	Samples() <-chan float32

	// Close releases the underlying device.
	Close() error
}

// Opener acquires a SampleSource for the given device ID. An empty ID
// selects the default device.
type Opener func(deviceID string) (SampleSource, error)
