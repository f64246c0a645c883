package server

import (
	"time"

	"github.com/utterly-ai/utterly/pkg/bus"
	"github.com/utterly-ai/utterly/pkg/vad"
)

// Commands accepted over the websocket.
const (
	CmdStartCapture         = "start_capture"
	CmdStopCapture          = "stop_capture"
	CmdManualStopContinuous = "manual_stop_continuous"
	CmdGetVADConfig         = "get_vad_config"
	CmdUpdateVADConfig      = "update_vad_config"
	CmdGetCaptureStatus     = "get_capture_status"
	CmdGetSampleRate        = "get_sample_rate"
	CmdGetInputDevices      = "get_input_devices"
	CmdGetOutputDevices     = "get_output_devices"
	CmdCheckAudioAccess     = "check_audio_access"
)

// Request is a client command. ID is echoed back in the response so
// clients can correlate.
type Request struct {
	ID      string      `json:"id,omitempty"`
	Command string      `json:"command"`
	Config  *vad.Config `json:"config,omitempty"`
	Device  string      `json:"device,omitempty"`
}

// Response answers one Request.
type Response struct {
	ID     string `json:"id,omitempty"`
	OK     bool   `json:"ok"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// EventMessage is a pushed capture notification.
type EventMessage struct {
	Event     string    `json:"event"`
	SessionID string    `json:"session_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

func eventMessage(evt bus.Event) EventMessage {
	return EventMessage{
		Event:     evt.Type.String(),
		SessionID: evt.SessionID,
		Timestamp: evt.Timestamp,
		Payload:   evt.Payload,
	}
}
