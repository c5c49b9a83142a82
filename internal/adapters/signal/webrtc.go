package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/gokalp/parley/internal/core"
)

// handleRelay covers webrtc-offer, webrtc-answer and webrtc-ice-candidate.
// The payload stays opaque end to end; only the envelope is decoded.
func (ctl *SignalWSController) handleRelay(
	kind string,
	sid core.SessionID,
	data []byte,
) {
	type relayPayload struct {
		Type               string          `json:"type"`
		Payload            json.RawMessage `json:"payload"`
		TargetConnectionID core.SessionID  `json:"targetConnectionId"`
	}
	var p relayPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("kind", kind).Msg("bad relay payload")
		return
	}
	ctl.Hub.Relay(kind, sid, p.TargetConnectionID, p.Payload)
}

func (ctl *SignalWSController) handleSpeaking(
	sid core.SessionID,
	data []byte,
) {
	type speakingPayload struct {
		Type       string `json:"type"`
		IsSpeaking bool   `json:"isSpeaking"`
	}
	var p speakingPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad speaking payload")
		return
	}
	ctl.Hub.Speaking(sid, p.IsSpeaking)
}
