package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/gokalp/parley/internal/core"
)

// Relay forwards an opaque signaling payload to exactly the named target,
// annotated with the sender's connection id. The target is taken on faith
// from the sender; a dead target means the hop silently evaporates. The
// payload is never parsed and never stored.
func (h *Hub) Relay(kind string, sender, target core.SessionID, payload json.RawMessage) {
	resp := struct {
		Type               string          `json:"type"`
		Payload            json.RawMessage `json:"payload"`
		SenderConnectionID core.SessionID  `json:"senderConnectionId"`
	}{
		Type:               kind,
		Payload:            payload,
		SenderConnectionID: sender,
	}
	if !h.sendTo(target, resp) {
		log.Debug().Str("module", "app.hub").Str("kind", kind).Str("target", string(target)).Msg("relay target gone, dropped")
	}
}

// StopScreenShare tells everyone but the sender that sharing ended.
// Unbound senders have nothing to announce.
func (h *Hub) StopScreenShare(sid core.SessionID) {
	user, ok := h.Registry.Identity(sid)
	if !ok {
		return
	}
	resp := struct {
		Type         string         `json:"type"`
		ConnectionID core.SessionID `json:"connectionId"`
		Username     string         `json:"username"`
	}{
		Type:         "user-stopped-sharing",
		ConnectionID: sid,
		Username:     user.Username,
	}
	h.broadcast(sid, resp)
}

// Speaking records the transient flag and tells everyone but the sender.
// No registry precondition: the flag is broadcast even for unbound
// connections.
func (h *Hub) Speaking(sid core.SessionID, isSpeaking bool) {
	h.Registry.SetSpeaking(sid, isSpeaking)
	resp := struct {
		Type         string         `json:"type"`
		ConnectionID core.SessionID `json:"connectionId"`
		IsSpeaking   bool           `json:"isSpeaking"`
	}{
		Type:         "user-speaking",
		ConnectionID: sid,
		IsSpeaking:   isSpeaking,
	}
	h.broadcast(sid, resp)
}
