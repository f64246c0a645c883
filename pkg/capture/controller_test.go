package capture

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/utterly-ai/utterly/pkg/bus"
	"github.com/utterly-ai/utterly/pkg/vad"
)

// stubSource is a SampleSource backed by a plain channel.
type stubSource struct {
	rate   uint32
	ch     chan float32
	closed bool
}

func (s *stubSource) SampleRate() uint32      { return s.rate }
func (s *stubSource) Samples() <-chan float32 { return s.ch }
func (s *stubSource) Close() error            { s.closed = true; return nil }

// stubOpener always hands out src.
func stubOpener(src *stubSource) Opener {
	return func(string) (SampleSource, error) {
		return src, nil
	}
}

func TestControllerRejectsSecondStart(t *testing.T) {
	b := bus.NewEventBus(zerolog.Nop())
	src := &stubSource{rate: 16000, ch: make(chan float32)}
	c := NewController(stubOpener(src), b, zerolog.Nop())

	require.NoError(t, c.Start(nil, ""))
	assert.True(t, c.Capturing())

	err := c.Start(nil, "")
	assert.ErrorIs(t, err, ErrAlreadyCapturing)

	require.NoError(t, c.Stop())
	assert.False(t, c.Capturing())
}

func TestControllerStartAfterStop(t *testing.T) {
	b := bus.NewEventBus(zerolog.Nop())
	c := NewController(func(string) (SampleSource, error) {
		return &stubSource{rate: 16000, ch: make(chan float32)}, nil
	}, b, zerolog.Nop())

	require.NoError(t, c.Start(nil, ""))
	require.NoError(t, c.Stop())

	require.NoError(t, c.Start(nil, ""))
	require.NoError(t, c.Stop())
}

func TestControllerContinuousRunsToCompletion(t *testing.T) {
	b := bus.NewEventBus(zerolog.Nop())
	started := make(chan bus.Event, 8)
	detected := make(chan bus.Event, 8)
	stopped := make(chan bus.Event, 8)
	b.Subscribe(bus.EventCaptureStarted, started)
	b.Subscribe(bus.EventSpeechDetected, detected)
	b.Subscribe(bus.EventContinuousStopped, stopped)

	const sampleRate = 16000
	src := &stubSource{rate: sampleRate, ch: make(chan float32, 20000)}
	for i := 0; i < 20000; i++ {
		src.ch <- 0.3
	}
	close(src.ch)

	cfg := continuousConfig(1)
	c := NewController(stubOpener(src), b, zerolog.Nop())
	require.NoError(t, c.Start(&cfg, ""))

	startEvt := waitEvent(t, started)
	assert.Equal(t, uint32(sampleRate), startEvt.Payload)

	waitEvent(t, stopped)

	// One second of audio, auto-stopped and emitted without Stop.
	pcm := decodeRecording(t, waitEvent(t, detected))
	assert.Len(t, pcm, sampleRate)
}

func TestControllerManualStopContinuous(t *testing.T) {
	b := bus.NewEventBus(zerolog.Nop())
	started := make(chan bus.Event, 8)
	detected := make(chan bus.Event, 8)
	stopped := make(chan bus.Event, 8)
	b.Subscribe(bus.EventCaptureStarted, started)
	b.Subscribe(bus.EventSpeechDetected, detected)
	b.Subscribe(bus.EventContinuousStopped, stopped)

	src := &stubSource{rate: 16000, ch: make(chan float32, 512)}
	for i := 0; i < 512; i++ {
		src.ch <- 0.4
	}

	cfg := continuousConfig(180)
	c := NewController(stubOpener(src), b, zerolog.Nop())
	require.NoError(t, c.Start(&cfg, ""))

	waitEvent(t, started)
	time.Sleep(50 * time.Millisecond) // let the buffer drain
	require.NoError(t, c.StopContinuous())

	waitEvent(t, stopped)
	pcm := decodeRecording(t, waitEvent(t, detected))
	assert.Len(t, pcm, 512)
}

func TestControllerRejectsInvalidSampleRate(t *testing.T) {
	b := bus.NewEventBus(zerolog.Nop())
	src := &stubSource{rate: 4000, ch: make(chan float32)}
	c := NewController(stubOpener(src), b, zerolog.Nop())

	err := c.Start(nil, "")
	assert.ErrorIs(t, err, ErrInvalidSampleRate)
	assert.False(t, c.Capturing())
	assert.True(t, src.closed)
}

func TestControllerOpenerFailureFreesSlot(t *testing.T) {
	b := bus.NewEventBus(zerolog.Nop())
	c := NewController(func(string) (SampleSource, error) {
		return nil, errors.New("no such device")
	}, b, zerolog.Nop())

	err := c.Start(nil, "")
	assert.ErrorIs(t, err, ErrDeviceAccess)

	// The slot must be free again, not stuck behind a phantom session.
	err = c.Start(nil, "")
	assert.ErrorIs(t, err, ErrDeviceAccess)
}

func TestControllerStartValidatesConfig(t *testing.T) {
	b := bus.NewEventBus(zerolog.Nop())
	src := &stubSource{rate: 16000, ch: make(chan float32)}
	c := NewController(stubOpener(src), b, zerolog.Nop())

	bad := vad.DefaultConfig()
	bad.SensitivityRMS = 2

	err := c.Start(&bad, "")
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.False(t, c.Capturing())

	require.NoError(t, c.Start(nil, ""))
	require.NoError(t, c.Stop())
}

func TestControllerStopWithoutSession(t *testing.T) {
	b := bus.NewEventBus(zerolog.Nop())
	stopped := make(chan bus.Event, 8)
	b.Subscribe(bus.EventCaptureStopped, stopped)

	c := NewController(stubOpener(&stubSource{rate: 16000, ch: make(chan float32)}), b, zerolog.Nop())

	require.NoError(t, c.Stop())
	waitEvent(t, stopped)
	assert.False(t, c.Capturing())
}

func TestControllerUpdateConfig(t *testing.T) {
	b := bus.NewEventBus(zerolog.Nop())
	c := NewController(stubOpener(&stubSource{rate: 16000, ch: make(chan float32)}), b, zerolog.Nop())

	bad := vad.DefaultConfig()
	bad.HopSize = 0
	assert.ErrorIs(t, c.UpdateConfig(bad), ErrInvalidConfig)

	good := vad.DefaultConfig()
	good.SensitivityRMS = 0.02
	require.NoError(t, c.UpdateConfig(good))
	assert.Equal(t, float32(0.02), c.Config().SensitivityRMS)
}
