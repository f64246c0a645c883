package trace

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for capture spans.
const (
	AttrSessionID   = attribute.Key("capture.session_id")
	AttrSampleRate  = attribute.Key("capture.sample_rate")
	AttrMode        = attribute.Key("capture.mode")
	AttrSampleCount = attribute.Key("utterance.sample_count")
	AttrSpeechHops  = attribute.Key("utterance.speech_hops")
	AttrAccepted    = attribute.Key("utterance.accepted")
)

// StartSessionSpan starts a span covering one capture session.
// mode is "vad" or "continuous".
func StartSessionSpan(ctx context.Context, sessionID string, sampleRate uint32, mode string) (context.Context, trace.Span) {
	return StartSpan(ctx, "capture.session",
		trace.WithAttributes(
			AttrSessionID.String(sessionID),
			AttrSampleRate.Int(int(sampleRate)),
			AttrMode.String(mode),
		),
	)
}

// StartUtteranceSpan starts a span covering the finalization of one
// utterance: trimming, normalization and encoding.
func StartUtteranceSpan(ctx context.Context, sessionID string, sampleCount, speechHops int) (context.Context, trace.Span) {
	return StartSpan(ctx, "utterance.finalize",
		trace.WithAttributes(
			AttrSessionID.String(sessionID),
			AttrSampleCount.Int(sampleCount),
			AttrSpeechHops.Int(speechHops),
		),
	)
}
