// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const MaxUsernameLen = 64

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
)

// User is the identity a connection binds on join.
type User struct {
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUser(username, avatarURL string) (*User, error) {
	if len(username) == 0 {
		return nil, ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return nil, ErrUsernameTooLong
	}
	return &User{Username: username, AvatarURL: avatarURL}, nil
}

// AnonymousUser is the fallback identity for senders that never joined.
func AnonymousUser() User {
	return User{Username: "Anonymous"}
}
