package capture

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/utterly-ai/utterly/pkg/audio"
	"github.com/utterly-ai/utterly/pkg/bus"
	"github.com/utterly-ai/utterly/pkg/trace"
	"github.com/utterly-ai/utterly/pkg/vad"
)

const (
	// stopSettleDelay gives the capture task time to observe cancellation
	// and release the device before state flips.
	stopSettleDelay = 300 * time.Millisecond

	// deviceReleaseDelay lets the OS fully release the device handle
	// before the stopped notification goes out.
	deviceReleaseDelay = 200 * time.Millisecond

	// manualStopDelay gives continuous mode one flag-poll cycle to notice
	// the cooperative stop before StopContinuous returns.
	manualStopDelay = 20 * time.Millisecond
)

// session is one running capture task.
type session struct {
	id             string
	cancel         context.CancelFunc
	done           chan struct{}
	stopContinuous *atomic.Bool
}

// Controller enforces at-most-one capture session and routes a started
// session into VAD or continuous mode based on the active configuration.
// All methods are safe for concurrent use.
type Controller struct {
	open Opener
	bus  bus.Bus
	log  zerolog.Logger

	mu        sync.Mutex
	cfg       vad.Config
	session   *session
	capturing bool
}

// NewController creates a controller with the default configuration.
func NewController(open Opener, b bus.Bus, log zerolog.Logger) *Controller {
	return &Controller{
		open: open,
		bus:  b,
		log:  log.With().Str("component", "capture").Logger(),
		cfg:  vad.DefaultConfig(),
	}
}

// Start opens the audio source and spawns the capture task. A non-nil cfg
// replaces the stored configuration before the session begins; the session
// runs on a snapshot, so later updates never affect it. Returns
// ErrAlreadyCapturing if a session is active.
func (c *Controller) Start(cfg *vad.Config, deviceID string) error {
	c.mu.Lock()
	if c.session != nil {
		c.mu.Unlock()
		return ErrAlreadyCapturing
	}
	if cfg != nil {
		if err := cfg.Validate(); err != nil {
			c.mu.Unlock()
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		c.cfg = *cfg
	}
	snapshot := c.cfg

	// Reserve the slot before opening the device so a concurrent Start
	// fails fast instead of racing for the hardware.
	sess := &session{
		id:             uuid.NewString(),
		done:           make(chan struct{}),
		stopContinuous: &atomic.Bool{},
	}
	c.session = sess
	c.mu.Unlock()

	src, err := c.open(deviceID)
	if err != nil {
		c.clearSession(sess)
		return fmt.Errorf("%w: %v", ErrDeviceAccess, err)
	}

	sampleRate := src.SampleRate()
	if sampleRate < audio.MinSampleRate || sampleRate > audio.MaxSampleRate {
		src.Close()
		c.clearSession(sess)
		return fmt.Errorf("%w: got %d Hz", ErrInvalidSampleRate, sampleRate)
	}

	runCtx, cancel := context.WithCancel(context.Background())

	// The capturing flag is raised before the task spawns so status
	// queries immediately after Start never report idle.
	c.mu.Lock()
	sess.cancel = cancel
	c.capturing = true
	c.mu.Unlock()

	c.bus.Publish(bus.Event{
		Type:      bus.EventCaptureStarted,
		SessionID: sess.id,
		Payload:   sampleRate,
	})
	c.log.Info().
		Str("session_id", sess.id).
		Uint32("sample_rate", sampleRate).
		Bool("vad", snapshot.Enabled).
		Msg("capture started")

	go c.run(runCtx, sess, src, snapshot, sampleRate)

	return nil
}

// run is the capture task body. It exits when the mode loop returns, then
// releases the device and frees the session slot.
func (c *Controller) run(ctx context.Context, sess *session, src SampleSource, cfg vad.Config, sampleRate uint32) {
	defer close(sess.done)
	defer src.Close()

	mode := "continuous"
	if cfg.Enabled {
		mode = "vad"
	}
	ctx, span := trace.StartSessionSpan(ctx, sess.id, sampleRate, mode)
	defer span.End()

	if cfg.Enabled {
		seg, err := vad.NewSegmenter(cfg, sampleRate, c.bus, c.log, sess.id)
		if err != nil {
			c.log.Error().Err(err).Msg("failed to create segmenter")
		} else {
			seg.Run(ctx, src.Samples())
		}
	} else {
		NewContinuous(cfg, sampleRate, c.bus, c.log, sess.id, sess.stopContinuous).Run(ctx, src.Samples())
	}

	// Natural completion frees the slot but leaves the capturing flag to
	// Stop, mirroring the split between task liveness and reported state.
	c.clearSession(sess)
	c.log.Debug().Str("session_id", sess.id).Msg("capture task finished")
}

func (c *Controller) clearSession(sess *session) {
	c.mu.Lock()
	if c.session == sess {
		c.session = nil
	}
	c.mu.Unlock()
}

// Stop cancels the running session, waits out the device settle delays,
// and emits the stopped notification. Safe to call when nothing is
// running; the notification is emitted regardless so consumers can
// resynchronize.
func (c *Controller) Stop() error {
	c.mu.Lock()
	sess := c.session
	c.session = nil
	c.mu.Unlock()

	var sessionID string
	if sess != nil {
		sessionID = sess.id
		if sess.cancel != nil {
			sess.cancel()
		}
		c.log.Info().Str("session_id", sess.id).Msg("stopping capture")
	}

	time.Sleep(stopSettleDelay)

	c.mu.Lock()
	c.capturing = false
	c.mu.Unlock()

	time.Sleep(deviceReleaseDelay)

	c.bus.Publish(bus.Event{Type: bus.EventCaptureStopped, SessionID: sessionID})
	return nil
}

// StopContinuous raises the cooperative stop flag on the active continuous
// session so it flushes and emits its buffer. No-op in VAD mode or when
// nothing is running.
func (c *Controller) StopContinuous() error {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()

	if sess != nil {
		sess.stopContinuous.Store(true)
		c.log.Info().Str("session_id", sess.id).Msg("manual stop requested")
	}

	time.Sleep(manualStopDelay)
	return nil
}

// Capturing reports whether the controller considers a capture active.
// The flag is cleared by Stop, not by natural task completion.
func (c *Controller) Capturing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capturing
}

// Config returns the stored configuration.
func (c *Controller) Config() vad.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// UpdateConfig validates and stores cfg. A running session keeps its
// snapshot; the new values apply from the next Start.
func (c *Controller) UpdateConfig(cfg vad.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()

	c.log.Info().
		Bool("vad", cfg.Enabled).
		Float32("sensitivity_rms", cfg.SensitivityRMS).
		Msg("configuration updated")
	return nil
}
