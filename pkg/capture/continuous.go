package capture

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/utterly-ai/utterly/pkg/audio"
	"github.com/utterly-ai/utterly/pkg/bus"
	"github.com/utterly-ai/utterly/pkg/trace"
	"github.com/utterly-ai/utterly/pkg/vad"
)

const (
	// targetRMS is the loudness target applied before encoding.
	targetRMS = 0.1

	// stopPollInterval bounds cancellation latency when no samples arrive.
	stopPollInterval = 10 * time.Millisecond
)

// Continuous accumulates audio without segmentation until a time or size
// bound is hit or the cooperative stop flag is raised. Unlike VAD mode,
// cancellation here is cooperative so the buffered audio can still be
// flushed and emitted before the task exits.
type Continuous struct {
	cfg        vad.Config
	sampleRate uint32
	bus        bus.Bus
	log        zerolog.Logger
	sessionID  string
	stop       *atomic.Bool
}

// NewContinuous creates a continuous-mode capture task. stop is the shared
// cancellation flag raised by Controller.StopContinuous.
func NewContinuous(cfg vad.Config, sampleRate uint32, b bus.Bus, log zerolog.Logger, sessionID string, stop *atomic.Bool) *Continuous {
	return &Continuous{
		cfg:        cfg,
		sampleRate: sampleRate,
		bus:        b,
		log:        log.With().Str("component", "continuous").Str("session_id", sessionID).Logger(),
		sessionID:  sessionID,
		stop:       stop,
	}
}

// Run accumulates samples until a bound is reached, then conditions,
// normalizes and encodes whatever was recorded.
func (c *Continuous) Run(ctx context.Context, samples <-chan float32) {
	maxSamples := int(c.sampleRate) * int(c.cfg.MaxRecordingDurationSecs)
	maxDuration := time.Duration(c.cfg.MaxRecordingDurationSecs) * time.Second

	// Pre-sized so the hot loop never reallocates.
	buffer := make([]float32, 0, maxSamples)
	start := time.Now()

	c.bus.Publish(bus.Event{
		Type:      bus.EventContinuousStarted,
		SessionID: c.sessionID,
		Payload:   c.cfg.MaxRecordingDurationSecs,
	})

	ticker := time.NewTicker(stopPollInterval)
	defer ticker.Stop()

loop:
	for {
		if c.stop.Load() {
			break
		}

		select {
		case <-ctx.Done():
			break loop

		case sample, ok := <-samples:
			if !ok {
				c.log.Warn().Msg("audio stream ended unexpectedly")
				break loop
			}
			if c.stop.Load() {
				break loop
			}

			buffer = append(buffer, sample)
			elapsed := time.Since(start)

			// Once per second of recorded audio.
			if len(buffer)%int(c.sampleRate) == 0 {
				c.bus.Publish(bus.Event{
					Type:      bus.EventRecordingProgress,
					SessionID: c.sessionID,
					Payload:   uint64(elapsed / time.Second),
				})
			}

			if len(buffer) >= maxSamples {
				break loop
			}
			if elapsed >= maxDuration {
				break loop
			}

		case <-ticker.C:
			// Re-check the stop flag even when no samples arrive.
		}
	}

	c.flush(ctx, buffer)

	c.bus.Publish(bus.Event{Type: bus.EventContinuousStopped, SessionID: c.sessionID})
}

// flush conditions and encodes the recording, or reports that nothing
// was captured.
func (c *Continuous) flush(ctx context.Context, buffer []float32) {
	if len(buffer) == 0 {
		c.log.Warn().Msg("no audio captured in continuous mode")
		c.bus.Publish(bus.Event{
			Type:      bus.EventEncodingError,
			SessionID: c.sessionID,
			Payload:   "no audio recorded",
		})
		return
	}

	_, span := trace.StartUtteranceSpan(ctx, c.sessionID, len(buffer), 0)
	defer span.End()

	cleaned := audio.GateFrame(buffer, c.cfg.NoiseGateThreshold)
	normalized := audio.Normalize(cleaned, targetRMS)

	b64, err := audio.EncodeBase64(c.sampleRate, normalized)
	if err != nil {
		c.log.Error().Err(err).Msg("failed to encode continuous recording")
		c.bus.Publish(bus.Event{
			Type:      bus.EventEncodingError,
			SessionID: c.sessionID,
			Payload:   err.Error(),
		})
		return
	}

	c.bus.Publish(bus.Event{
		Type:      bus.EventSpeechDetected,
		SessionID: c.sessionID,
		Payload:   b64,
	})
	c.log.Info().Int("samples", len(buffer)).Msg("continuous recording emitted")
}
