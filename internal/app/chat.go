package app

import (
	"github.com/rs/zerolog/log"

	"github.com/gokalp/parley/internal/core"
	"github.com/gokalp/parley/internal/domain"
)

// PostMessage routes one public chat line: resolve the sender (Anonymous
// when unbound), stamp it, hand it to the history writer without waiting,
// and fan it out to everyone including the sender. The text is opaque.
func (h *Hub) PostMessage(sid core.SessionID, text string) {
	user, ok := h.Registry.Identity(sid)
	if !ok {
		user = domain.AnonymousUser()
	}
	msg := domain.NewChatMessage(user, text)
	h.Writer.Enqueue(msg)
	h.broadcastChat("", msg)
	log.Debug().Str("module", "app.hub").Str("sid", string(sid)).Str("username", user.Username).Msg("chat message routed")
}

// PrivateMessage delivers to the first binder of the recipient name and
// echoes to the sender. An unknown recipient is a silent drop; an
// unbound sender degrades to Anonymous, same as public chat.
func (h *Hub) PrivateMessage(sid core.SessionID, recipientUsername, text string) {
	user, ok := h.Registry.Identity(sid)
	if !ok {
		user = domain.AnonymousUser()
	}
	target, ok := h.Registry.ResolveName(recipientUsername)
	if !ok {
		log.Debug().Str("module", "app.hub").Str("recipient", recipientUsername).Msg("private message to unknown name dropped")
		return
	}
	resp := struct {
		domain.ChatMessage
		Type              string `json:"type"`
		Private           bool   `json:"private"`
		RecipientUsername string `json:"recipientUsername"`
	}{
		ChatMessage:       domain.NewChatMessage(user, text),
		Type:              "chat message",
		Private:           true,
		RecipientUsername: recipientUsername,
	}
	h.sendTo(target, resp)
	if target != sid {
		h.sendTo(sid, resp)
	}
}
