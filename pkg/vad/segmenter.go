package vad

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/utterly-ai/utterly/pkg/audio"
	"github.com/utterly-ai/utterly/pkg/bus"
	"github.com/utterly-ai/utterly/pkg/trace"
)

const (
	// maxUtteranceSecs caps a single utterance; runaway continuous speech
	// is force-flushed at this point to bound memory.
	maxUtteranceSecs = 30

	// keepSilenceFraction of a second is retained at the utterance tail
	// when trailing silence is trimmed (0.15s).
	keepSilenceNumer = 15
	keepSilenceDenom = 100

	// normalizeTargetRMS is the loudness target applied to every finished
	// utterance before encoding.
	normalizeTargetRMS = 0.1

	discardReason = "audio too short (likely background noise)"
)

// Segmenter is the speech/silence state machine. It consumes a raw sample
// stream, conditions and analyses it hop by hop, and publishes finished
// utterances (or discard notices) on the event bus.
//
// A Segmenter is owned by exactly one capture task; none of its state is
// safe for concurrent use.
type Segmenter struct {
	cfg        Config
	sampleRate uint32
	bus        bus.Bus
	log        zerolog.Logger
	sessionID  string

	pending   []float32 // samples below one hop, waiting for more input
	preSpeech *audio.RingBuffer
	utterance []float32
	inSpeech  bool

	speechChunks  int
	silenceChunks int
	maxSamples    int
}

// NewSegmenter creates a segmenter for one capture session.
func NewSegmenter(cfg Config, sampleRate uint32, b bus.Bus, log zerolog.Logger, sessionID string) (*Segmenter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Segmenter{
		cfg:        cfg,
		sampleRate: sampleRate,
		bus:        b,
		log:        log.With().Str("component", "vad").Str("session_id", sessionID).Logger(),
		sessionID:  sessionID,
		pending:    make([]float32, 0, cfg.HopSize),
		preSpeech:  audio.NewRingBuffer(cfg.PreSpeechChunks * cfg.HopSize),
		maxSamples: int(sampleRate) * maxUtteranceSecs,
	}, nil
}

// Run consumes samples until the stream closes or ctx is cancelled.
// Cancellation is hard: any in-flight utterance is discarded, since an
// utterance is only meaningful once fully segmented.
func (s *Segmenter) Run(ctx context.Context, samples <-chan float32) {
	for {
		select {
		case <-ctx.Done():
			return
		case sample, ok := <-samples:
			if !ok {
				return
			}
			s.pending = append(s.pending, sample)
			for len(s.pending) >= s.cfg.HopSize {
				frame := make([]float32, s.cfg.HopSize)
				copy(frame, s.pending[:s.cfg.HopSize])
				s.pending = s.pending[s.cfg.HopSize:]
				s.processFrame(ctx, frame)
			}
		}
	}
}

// processFrame advances the state machine by one hop.
func (s *Segmenter) processFrame(ctx context.Context, frame []float32) {
	frame = audio.GateFrame(frame, s.cfg.NoiseGateThreshold)
	rms, peak := audio.Metrics(frame)
	isSpeech := rms > s.cfg.SensitivityRMS || peak > s.cfg.PeakThreshold

	if isSpeech {
		if !s.inSpeech {
			s.inSpeech = true
			s.speechChunks = 0
			s.silenceChunks = 0

			// Seed the utterance with the look-back window so the onset
			// sounds natural instead of starting mid-word.
			s.utterance = append(s.utterance, s.preSpeech.Drain()...)

			s.bus.Publish(bus.Event{Type: bus.EventSpeechStart, SessionID: s.sessionID})
			s.log.Debug().Float32("rms", rms).Float32("peak", peak).Msg("speech started")
		}

		s.speechChunks++
		s.utterance = append(s.utterance, frame...)
		s.silenceChunks = 0

		// Safety cap: force-flush past 30s. This can split one long
		// utterance into segments with no silence gap between them.
		if len(s.utterance) > s.maxSamples {
			s.log.Warn().Int("samples", len(s.utterance)).Msg("utterance hit safety cap, force flushing")
			s.emitUtterance(ctx)
			s.reset()
		}
		return
	}

	if !s.inSpeech {
		// Idle: maintain the rolling look-back window.
		s.preSpeech.Write(frame)
		return
	}

	// Silence inside an utterance is kept; it carries natural trailing sound.
	s.silenceChunks++
	s.utterance = append(s.utterance, frame...)

	if s.silenceChunks < s.cfg.SilenceChunks {
		return
	}

	// Hangover complete: the utterance is finished.
	if s.speechChunks >= s.cfg.MinSpeechChunks && len(s.utterance) > 0 {
		s.trimTrailingSilence()
		s.emitUtterance(ctx)
	} else {
		s.bus.Publish(bus.Event{
			Type:      bus.EventSpeechDiscarded,
			SessionID: s.sessionID,
			Payload:   discardReason,
		})
		s.log.Debug().Int("speech_chunks", s.speechChunks).Msg("utterance discarded")
	}
	s.reset()
}

// trimTrailingSilence truncates the hangover silence down to a fixed
// 0.15s tail so the utterance ends naturally.
func (s *Segmenter) trimTrailingSilence() {
	silenceSamples := s.silenceChunks * s.cfg.HopSize
	keepSamples := int(s.sampleRate) * keepSilenceNumer / keepSilenceDenom

	trim := silenceSamples - keepSamples
	if trim < 0 {
		trim = 0
	}
	if len(s.utterance) > trim {
		s.utterance = s.utterance[:len(s.utterance)-trim]
	}
}

// emitUtterance normalizes and encodes the current buffer and publishes it.
// Encode failures are reported and the utterance is dropped, never retried.
func (s *Segmenter) emitUtterance(ctx context.Context) {
	_, span := trace.StartUtteranceSpan(ctx, s.sessionID, len(s.utterance), s.speechChunks)
	defer span.End()

	normalized := audio.Normalize(s.utterance, normalizeTargetRMS)
	b64, err := audio.EncodeBase64(s.sampleRate, normalized)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to encode utterance")
		s.bus.Publish(bus.Event{
			Type:      bus.EventEncodingError,
			SessionID: s.sessionID,
			Payload:   "failed to encode speech",
		})
		return
	}

	s.bus.Publish(bus.Event{
		Type:      bus.EventSpeechDetected,
		SessionID: s.sessionID,
		Payload:   b64,
	})
	s.log.Info().
		Int("samples", len(s.utterance)).
		Int("speech_chunks", s.speechChunks).
		Msg("utterance emitted")
}

// reset returns the machine to Idle with all counters cleared.
func (s *Segmenter) reset() {
	s.utterance = nil
	s.inSpeech = false
	s.speechChunks = 0
	s.silenceChunks = 0
}
