package device

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"github.com/utterly-ai/utterly/pkg/capture"
)

// sourceBufferSamples buffers roughly two thirds of a second at the
// capture rate, absorbing consumer hiccups without stalling the device
// callback.
const sourceBufferSamples = 32768

// Source is an open capture stream. The miniaudio callback converts
// incoming float32 frames and pushes them onto the sample channel without
// ever blocking; if the consumer falls behind, samples are dropped.
type Source struct {
	device *malgo.Device
	rate   uint32
	ch     chan float32

	closed  atomic.Bool
	dropped atomic.Uint64
	once    sync.Once

	// Keeps the selected device ID alive for the lifetime of the device,
	// since malgo holds a raw pointer into it.
	deviceID *malgo.DeviceID
}

var _ capture.SampleSource = (*Source)(nil)

// Open starts capturing from the device identified by id. An empty id
// selects the system default.
func (m *Manager) Open(id string) (*Source, error) {
	src := &Source{
		rate: CaptureSampleRate,
		ch:   make(chan float32, sourceBufferSamples),
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.PeriodSizeInMilliseconds = 20
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = CaptureSampleRate
	deviceConfig.Alsa.NoMMap = 1

	if id != "" {
		decoded, err := DecodeID(id)
		if err != nil {
			return nil, err
		}
		src.deviceID = &decoded
		deviceConfig.Capture.DeviceID = src.deviceID.Pointer()
	}

	device, err := malgo.InitDevice(m.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: func(outputSamples, inputSamples []byte, framecount uint32) {
			src.push(inputSamples)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize capture device: %w", err)
	}
	src.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("failed to start capture device: %w", err)
	}

	m.log.Info().Str("device_id", id).Uint32("sample_rate", src.rate).Msg("capture device opened")
	return src, nil
}

// Opener adapts the manager to the capture controller's device contract.
func (m *Manager) Opener() capture.Opener {
	return func(deviceID string) (capture.SampleSource, error) {
		return m.Open(deviceID)
	}
}

// push converts raw little-endian float32 bytes and offers them to the
// channel. Runs on the miniaudio callback thread, so it must never block.
func (s *Source) push(raw []byte) {
	if s.closed.Load() {
		return
	}

	for i := 0; i+4 <= len(raw); i += 4 {
		sample := math.Float32frombits(binary.LittleEndian.Uint32(raw[i:]))
		select {
		case s.ch <- sample:
		default:
			s.dropped.Add(1)
		}
	}
}

// SampleRate reports the stream's sample rate in Hz.
func (s *Source) SampleRate() uint32 { return s.rate }

// Samples returns the stream channel. It closes when the source is closed.
func (s *Source) Samples() <-chan float32 { return s.ch }

// Dropped reports how many samples were discarded because the consumer
// fell behind.
func (s *Source) Dropped() uint64 { return s.dropped.Load() }

// Close stops the device and closes the sample channel. Idempotent.
func (s *Source) Close() error {
	s.once.Do(func() {
		s.closed.Store(true)
		if s.device != nil {
			s.device.Stop()
			s.device.Uninit()
		}
		close(s.ch)
	})
	return nil
}
