package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/gokalp/parley/internal/core"
	"github.com/gokalp/parley/internal/domain"
)

type sessionEntry struct {
	Conn     core.SignalConnection
	User     *domain.User // nil until the session is bound by a join
	Speaking bool
	Cancel   context.CancelFunc
}

// MemberView is a read-only view for snapshots and APIs (no transport fields).
type MemberView struct {
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Speaking  bool   `json:"speaking,omitempty"`
}

// Registry is the single owner of "who is here". All mutation happens
// under its lock; everything handed out is a copy.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
	// byName resolves a display name to the connections bound to it,
	// in bind order. The first binder owns the name for private delivery
	// until it disconnects or renames.
	byName map[string][]core.SessionID
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*sessionEntry),
		byName:   make(map[string][]core.SessionID),
	}
}

// Add inserts an unbound session for a fresh connection.
func (r *Registry) Add(sid core.SessionID, conn core.SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{Conn: conn, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("session added")
}

// Bind attaches an identity to the session. Rebinding overwrites, last
// write wins. Returns false if the connection is unknown.
func (r *Registry) Bind(sid core.SessionID, user domain.User) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return false
	}
	u := user
	// A re-sent join with the unchanged name keeps the session's slot in
	// the owners list; only a real rename re-enters at the tail.
	sameName := e.User != nil && e.User.Username == u.Username
	if e.User != nil && !sameName {
		r.dropNameLocked(e.User.Username, sid)
	}
	e.User = &u
	if !sameName {
		r.byName[u.Username] = append(r.byName[u.Username], sid)
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("username", u.Username).Msg("session bound")
	return true
}

// Remove deletes the session and returns the identity it held, nil if it
// was never bound. Removing an unknown id is a no-op.
func (r *Registry) Remove(sid core.SessionID) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return nil
	}
	delete(r.sessions, sid)
	if e.User != nil {
		r.dropNameLocked(e.User.Username, sid)
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("session removed")
	return e.User
}

func (r *Registry) dropNameLocked(name string, sid core.SessionID) {
	owners := r.byName[name]
	for i, owner := range owners {
		if owner == sid {
			owners = append(owners[:i], owners[i+1:]...)
			break
		}
	}
	if len(owners) == 0 {
		delete(r.byName, name)
		return
	}
	r.byName[name] = owners
}

// Conn returns the transport for a live connection.
func (r *Registry) Conn(sid core.SessionID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return nil, false
	}
	return e.Conn, true
}

// Identity returns a copy of the bound identity.
func (r *Registry) Identity(sid core.SessionID) (domain.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok || e.User == nil {
		return domain.User{}, false
	}
	return *e.User, true
}

// ResolveName finds the connection that owns a display name. With
// duplicate names the first binder wins; the policy is deliberate, not
// map-iteration luck.
func (r *Registry) ResolveName(name string) (core.SessionID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owners, ok := r.byName[name]
	if !ok || len(owners) == 0 {
		return "", false
	}
	return owners[0], true
}

// SetSpeaking records the transient speaking flag, best effort.
func (r *Registry) SetSpeaking(sid core.SessionID, speaking bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[sid]; ok {
		e.Speaking = speaking
	}
}

// Snapshot copies out every bound session. Unbound connections never
// appear in any snapshot.
func (r *Registry) Snapshot() map[core.SessionID]MemberView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[core.SessionID]MemberView, len(r.sessions))
	for sid, e := range r.sessions {
		if e.User == nil {
			continue
		}
		out[sid] = MemberView{
			Username:  e.User.Username,
			AvatarURL: e.User.AvatarURL,
			Speaking:  e.Speaking,
		}
	}
	return out
}

// Conns copies out every live transport, bound or not, optionally
// skipping one connection. History batches aside, every outbound event
// goes through this set.
func (r *Registry) Conns(except core.SessionID) map[core.SessionID]core.SignalConnection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[core.SessionID]core.SignalConnection, len(r.sessions))
	for sid, e := range r.sessions {
		if sid == except {
			continue
		}
		out[sid] = e.Conn
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Cancel fires the session's teardown func, if any.
func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled session")
	return true
}
