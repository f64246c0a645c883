package capture

import "errors"

var (
	// ErrAlreadyCapturing is returned by Start when a session exists.
	ErrAlreadyCapturing = errors.New("capture already running")

	// ErrDeviceAccess is returned when the audio source cannot be opened.
	ErrDeviceAccess = errors.New("failed to access audio device")

	// ErrInvalidSampleRate is returned when the stream's reported sample
	// rate is outside the supported 8000-96000 Hz range.
	ErrInvalidSampleRate = errors.New("invalid sample rate, expected 8000-96000 Hz")

	// ErrInvalidConfig is returned when a supplied configuration fails
	// validation.
	ErrInvalidConfig = errors.New("invalid capture configuration")
)
