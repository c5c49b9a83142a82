package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/gokalp/parley/internal/core"
)

func (ctl *SignalWSController) handleJoin(
	sid core.SessionID,
	conn *wsSignalConn,
	data []byte,
) {
	type joinPayload struct {
		Type      string `json:"type"`
		Username  string `json:"username"`
		AvatarURL string `json:"avatarUrl"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.Hub.Join(sid, p.Username, p.AvatarURL); err != nil {
		ctl.sendError(conn, err.Error())
	}
}

func (ctl *SignalWSController) handleChatMessage(
	sid core.SessionID,
	conn *wsSignalConn,
	data []byte,
) {
	type chatPayload struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	var p chatPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad chat payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	ctl.Hub.PostMessage(sid, p.Text)
}

func (ctl *SignalWSController) handlePrivateMessage(
	sid core.SessionID,
	conn *wsSignalConn,
	data []byte,
) {
	type privatePayload struct {
		Type              string `json:"type"`
		RecipientUsername string `json:"recipientUsername"`
		Text              string `json:"text"`
	}
	var p privatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad private payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	ctl.Hub.PrivateMessage(sid, p.RecipientUsername, p.Text)
}
