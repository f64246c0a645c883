package server

import "fmt"

// dispatch executes one command against the controller or the device
// directory and builds the response.
func (s *Server) dispatch(req Request) Response {
	resp := Response{ID: req.ID, OK: true}

	fail := func(err error) Response {
		s.log.Warn().Str("command", req.Command).Err(err).Msg("command failed")
		return Response{ID: req.ID, Error: err.Error()}
	}

	switch req.Command {
	case CmdStartCapture:
		if err := s.controller.Start(req.Config, req.Device); err != nil {
			return fail(err)
		}

	case CmdStopCapture:
		if err := s.controller.Stop(); err != nil {
			return fail(err)
		}

	case CmdManualStopContinuous:
		if err := s.controller.StopContinuous(); err != nil {
			return fail(err)
		}

	case CmdGetVADConfig:
		resp.Result = s.controller.Config()

	case CmdUpdateVADConfig:
		if req.Config == nil {
			return fail(fmt.Errorf("update_vad_config requires a config"))
		}
		if err := s.controller.UpdateConfig(*req.Config); err != nil {
			return fail(err)
		}

	case CmdGetCaptureStatus:
		resp.Result = s.controller.Capturing()

	case CmdGetSampleRate:
		resp.Result = s.devices.DefaultSampleRate()

	case CmdGetInputDevices:
		infos, err := s.devices.ListInputs()
		if err != nil {
			return fail(err)
		}
		resp.Result = infos

	case CmdGetOutputDevices:
		infos, err := s.devices.ListOutputs()
		if err != nil {
			return fail(err)
		}
		resp.Result = infos

	case CmdCheckAudioAccess:
		resp.Result = s.devices.CheckAccess()

	default:
		return fail(fmt.Errorf("unknown command: %q", req.Command))
	}

	return resp
}
