package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gokalp/parley/internal/core"
	"github.com/gokalp/parley/internal/domain"
	"github.com/gokalp/parley/internal/history"
)

// Hub is the dispatch core: it owns the registry and routes every
// inbound event to a fan-out, a targeted delivery, or a drop. Handlers
// are short critical sections over the registry followed by lock-free
// sends, which preserves snapshot-after-mutation ordering per event.
type Hub struct {
	Registry *Registry
	History  history.Store
	Writer   *history.Writer

	// HistoryLimit caps the batch delivered to a fresh connection.
	HistoryLimit int
	// HistoryTimeout bounds the store read on connect.
	HistoryTimeout time.Duration
}

func NewHub(reg *Registry, store history.Store, writer *history.Writer, historyLimit int) *Hub {
	return &Hub{
		Registry:       reg,
		History:        store,
		Writer:         writer,
		HistoryLimit:   historyLimit,
		HistoryTimeout: 5 * time.Second,
	}
}

// Connect inserts an unbound session and kicks off the history load for
// this connection only. The load is not awaited; a failed read is logged
// and the connection simply proceeds with no backlog.
func (h *Hub) Connect(ctx context.Context, sid core.SessionID, conn core.SignalConnection, cancel context.CancelFunc) {
	h.Registry.Add(sid, conn, cancel)
	go h.deliverHistory(ctx, sid)
}

// Disconnect tears the session down. Bound sessions announce their
// departure; unbound ones were never visible, so they leave silently.
func (h *Hub) Disconnect(sid core.SessionID) {
	h.Registry.Cancel(sid)
	user := h.Registry.Remove(sid)
	if user == nil {
		return
	}
	h.broadcastSnapshot()
	h.broadcastChat("", domain.SystemNotice(fmt.Sprintf("%s left the chat.", user.Username)))
	log.Info().Str("module", "app.hub").Str("sid", string(sid)).Str("username", user.Username).Msg("left")
}

// Join binds (or rebinds, last write wins) the identity, then announces
// the new roster to everyone and the arrival to everyone but the joiner.
// Both broadcasts are emitted before Join returns.
func (h *Hub) Join(sid core.SessionID, username, avatarURL string) error {
	user, err := domain.NewUser(username, avatarURL)
	if err != nil {
		return err
	}
	if !h.Registry.Bind(sid, *user) {
		return nil // connection raced its own teardown
	}
	log.Info().Str("module", "app.hub").Str("sid", string(sid)).Str("username", user.Username).Msg("joined")
	h.broadcastSnapshot()
	h.broadcastChat(sid, domain.SystemNotice(fmt.Sprintf("%s joined the chat.", user.Username)))
	return nil
}

func (h *Hub) deliverHistory(ctx context.Context, sid core.SessionID) {
	ctx, cancel := context.WithTimeout(ctx, h.HistoryTimeout)
	defer cancel()

	messages, err := h.History.Recent(ctx, h.HistoryLimit)
	if err != nil {
		log.Error().Err(err).Str("module", "app.hub").Str("sid", string(sid)).Msg("history load failed")
		return
	}
	if messages == nil {
		messages = []domain.ChatMessage{} // empty batch marshals as [], not null
	}
	resp := struct {
		Type     string               `json:"type"`
		Messages []domain.ChatMessage `json:"messages"`
	}{
		Type:     "load old messages",
		Messages: messages,
	}
	h.sendTo(sid, resp)
}

func (h *Hub) broadcastSnapshot() {
	resp := struct {
		Type  string                        `json:"type"`
		Users map[core.SessionID]MemberView `json:"users"`
	}{
		Type:  "update user list",
		Users: h.Registry.Snapshot(),
	}
	h.broadcast("", resp)
}

func (h *Hub) broadcastChat(except core.SessionID, msg domain.ChatMessage) {
	resp := struct {
		domain.ChatMessage
		Type string `json:"type"`
	}{
		ChatMessage: msg,
		Type:        "chat message",
	}
	h.broadcast(except, resp)
}

// broadcast fans an event out to every live connection except the given
// one (none excluded when empty). Slow consumers drop the frame rather
// than buffering without bound.
func (h *Hub) broadcast(except core.SessionID, v any) core.PublishResult {
	frame, err := encodeFrame(v)
	if err != nil {
		return core.PublishResult{}
	}
	res := core.PublishResult{}
	for sid, conn := range h.Registry.Conns(except) {
		if err := conn.TrySend(frame); err != nil {
			log.Debug().Str("module", "app.hub").Str("sid", string(sid)).Msg("dropped frame for slow consumer")
			res.Dropped++
			continue
		}
		res.SentTo++
	}
	return res
}

// sendTo delivers to one connection; a miss or a full queue is a silent
// best-effort drop.
func (h *Hub) sendTo(sid core.SessionID, v any) bool {
	conn, ok := h.Registry.Conn(sid)
	if !ok {
		return false
	}
	frame, err := encodeFrame(v)
	if err != nil {
		return false
	}
	return conn.TrySend(frame) == nil
}

func encodeFrame(v any) (core.Frame, error) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.hub").Msg("frame marshal")
		return nil, err
	}
	return b, nil
}
