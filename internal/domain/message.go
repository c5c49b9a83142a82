package domain

import (
	"time"

	"github.com/google/uuid"
)

// SystemUsername is reporting identity for joined/left notices.
const SystemUsername = "System"

// ChatMessage is the persisted and broadcast form of one chat line.
// Immutable once written to the history store.
type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	Text      string    `json:"text"`
	SentAt    time.Time `json:"timestamp"`
}

// NewChatMessage stamps a message with the server clock at handling time.
func NewChatMessage(user User, text string) ChatMessage {
	return ChatMessage{
		ID:        uuid.New(),
		Username:  user.Username,
		AvatarURL: user.AvatarURL,
		Text:      text,
		SentAt:    time.Now().UTC(),
	}
}

// SystemNotice builds a presence notice. Notices are broadcast like chat
// messages but never persisted.
func SystemNotice(text string) ChatMessage {
	return ChatMessage{
		ID:       uuid.New(),
		Username: SystemUsername,
		Text:     text,
		SentAt:   time.Now().UTC(),
	}
}
