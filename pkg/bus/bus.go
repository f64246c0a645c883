// Package bus provides the notification channel between the capture
// pipeline and its consumer. Delivery is fire-and-forget: publishing never
// blocks the audio path, and a subscriber that cannot keep up loses events.
package bus

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType identifies a capture lifecycle or progress notification.
type EventType int

const (
	// EventCaptureStarted carries the stream sample rate (uint32).
	EventCaptureStarted EventType = iota
	// EventSpeechStart marks the VAD entering speech; no payload.
	EventSpeechStart
	// EventSpeechDetected carries a finished utterance as a base64 WAV string.
	EventSpeechDetected
	// EventSpeechDiscarded carries the discard reason (string).
	EventSpeechDiscarded
	// EventEncodingError carries the failure reason (string).
	EventEncodingError
	// EventContinuousStarted carries the max recording duration in seconds (uint64).
	EventContinuousStarted
	// EventRecordingProgress carries elapsed seconds (uint64).
	EventRecordingProgress
	// EventContinuousStopped marks the end of continuous mode; no payload.
	EventContinuousStopped
	// EventCaptureStopped marks full session teardown; no payload.
	EventCaptureStopped
)

// String returns the wire name of the event type.
func (t EventType) String() string {
	switch t {
	case EventCaptureStarted:
		return "capture-started"
	case EventSpeechStart:
		return "speech-start"
	case EventSpeechDetected:
		return "speech-detected"
	case EventSpeechDiscarded:
		return "speech-discarded"
	case EventEncodingError:
		return "audio-encoding-error"
	case EventContinuousStarted:
		return "continuous-recording-start"
	case EventRecordingProgress:
		return "recording-progress"
	case EventContinuousStopped:
		return "continuous-recording-stopped"
	case EventCaptureStopped:
		return "capture-stopped"
	default:
		return "unknown"
	}
}

// Event is a single notification.
type Event struct {
	Type      EventType
	SessionID string
	Timestamp time.Time
	Payload   any
}

// Bus is the publish/subscribe contract used by the capture components.
type Bus interface {
	Subscribe(t EventType, ch chan Event)
	Unsubscribe(t EventType, ch chan Event)
	Publish(evt Event)
}

// EventBus is an in-process Bus. Publish delivers to each subscriber
// channel without blocking; full channels are skipped and logged.
type EventBus struct {
	mu   sync.RWMutex
	subs map[EventType][]chan Event
	log  zerolog.Logger
}

// NewEventBus creates an EventBus that reports dropped events to log.
func NewEventBus(log zerolog.Logger) *EventBus {
	return &EventBus{
		subs: make(map[EventType][]chan Event),
		log:  log,
	}
}

// Subscribe registers ch to receive events of type t.
func (b *EventBus) Subscribe(t EventType, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[t] = append(b.subs[t], ch)
}

// Unsubscribe removes ch from the subscriber list for t.
func (b *EventBus) Unsubscribe(t EventType, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	channels := b.subs[t]
	for i, c := range channels {
		if c == ch {
			b.subs[t] = append(channels[:i], channels[i+1:]...)
			return
		}
	}
}

// Publish delivers evt to all subscribers of its type. A zero Timestamp
// is filled in with the current time.
func (b *EventBus) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	b.mu.RLock()
	channels := make([]chan Event, len(b.subs[evt.Type]))
	copy(channels, b.subs[evt.Type])
	b.mu.RUnlock()

	for _, ch := range channels {
		select {
		case ch <- evt:
		default:
			b.log.Warn().
				Str("event", evt.Type.String()).
				Str("session_id", evt.SessionID).
				Msg("subscriber channel full, event dropped")
		}
	}
}

var _ Bus = (*EventBus)(nil)
