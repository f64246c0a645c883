// Package device wraps miniaudio (via malgo) behind a small surface:
// enumerating capture/playback devices, probing microphone access, and
// opening a capture stream as a channel of float32 samples.
package device

import (
	"encoding/hex"
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"
)

// CaptureSampleRate is the rate requested from every capture device.
// miniaudio resamples internally when the hardware runs at another rate.
const CaptureSampleRate = 48000

// Info describes one audio device.
type Info struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Default bool   `json:"default"`
}

// Manager owns the miniaudio context. One Manager serves the whole
// process; create it once at startup and Close it on shutdown.
type Manager struct {
	ctx *malgo.AllocatedContext
	log zerolog.Logger
}

// NewManager initializes the miniaudio context.
func NewManager(log zerolog.Logger) (*Manager, error) {
	log = log.With().Str("component", "device").Logger()

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		log.Debug().Msg(message)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	return &Manager{ctx: ctx, log: log}, nil
}

// Close tears down the miniaudio context. Open sources must be closed first.
func (m *Manager) Close() error {
	if m.ctx == nil {
		return nil
	}
	err := m.ctx.Uninit()
	m.ctx.Free()
	m.ctx = nil
	return err
}

// ListInputs enumerates capture devices.
func (m *Manager) ListInputs() ([]Info, error) {
	return m.list(malgo.Capture)
}

// ListOutputs enumerates playback devices.
func (m *Manager) ListOutputs() ([]Info, error) {
	return m.list(malgo.Playback)
}

func (m *Manager) list(kind malgo.DeviceType) ([]Info, error) {
	devices, err := m.ctx.Devices(kind)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	infos := make([]Info, 0, len(devices))
	for _, d := range devices {
		infos = append(infos, Info{
			ID:      EncodeID(d.ID),
			Name:    d.Name(),
			Default: d.IsDefault != 0,
		})
	}
	return infos, nil
}

// DefaultSampleRate reports the rate capture streams run at.
func (m *Manager) DefaultSampleRate() uint32 {
	return CaptureSampleRate
}

// CheckAccess reports whether capture devices can be enumerated. On
// platforms with microphone permissions this fails until access is
// granted.
func (m *Manager) CheckAccess() bool {
	devices, err := m.ctx.Devices(malgo.Capture)
	if err != nil {
		m.log.Warn().Err(err).Msg("capture device enumeration failed")
		return false
	}
	return len(devices) > 0
}

// EncodeID renders a device ID as a hex string for transport.
func EncodeID(id malgo.DeviceID) string {
	return hex.EncodeToString(id[:])
}

// DecodeID parses a hex device ID produced by EncodeID.
func DecodeID(s string) (malgo.DeviceID, error) {
	var id malgo.DeviceID

	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("malformed device id: %w", err)
	}
	if len(raw) != len(id) {
		return id, fmt.Errorf("malformed device id: got %d bytes, want %d", len(raw), len(id))
	}

	copy(id[:], raw)
	return id, nil
}
