package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gokalp/parley/internal/core"
	"github.com/gokalp/parley/internal/domain"
	"github.com/gokalp/parley/internal/history"
)

// memStore is an in-memory history.Store for hub tests.
type memStore struct {
	mu        sync.Mutex
	msgs      []domain.ChatMessage
	appendErr error
	recentErr error
}

func (s *memStore) Append(_ context.Context, msg domain.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *memStore) Recent(_ context.Context, limit int) ([]domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recentErr != nil {
		return nil, s.recentErr
	}
	if len(s.msgs) == 0 {
		// Matches BadgerStore: nothing collected means a nil slice.
		return nil, nil
	}
	start := len(s.msgs) - limit
	if start < 0 {
		start = 0
	}
	out := make([]domain.ChatMessage, len(s.msgs[start:]))
	copy(out, s.msgs[start:])
	return out, nil
}

func (s *memStore) Close() error { return nil }

func (s *memStore) stored() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ChatMessage, len(s.msgs))
	copy(out, s.msgs)
	return out
}

func newTestHub() (*Hub, *memStore) {
	store := &memStore{}
	return NewHub(NewRegistry(), store, history.NewWriter(store, 16), 50), store
}

func connect(h *Hub, sid core.SessionID) *fakeConn {
	conn := &fakeConn{}
	h.Connect(context.Background(), sid, conn, nil)
	return conn
}

func TestJoin_BroadcastsSnapshotToAllAndNoticeToOthers(t *testing.T) {
	req := require.New(t)
	h, _ := newTestHub()
	a := connect(h, "A")
	b := connect(h, "B")

	req.NoError(h.Join("A", "alice", "http://a/1.png"))

	for _, conn := range []*fakeConn{a, b} {
		snaps := conn.eventsOfType(t, "update user list")
		req.Len(snaps, 1)
		users := snaps[0]["users"].(map[string]any)
		req.Len(users, 1)
		req.Equal("alice", users["A"].(map[string]any)["username"])
	}

	req.Empty(a.eventsOfType(t, "chat message"))
	notices := b.eventsOfType(t, "chat message")
	req.Len(notices, 1)
	req.Equal(domain.SystemUsername, notices[0]["username"])
	req.Equal("alice joined the chat.", notices[0]["text"])
}

func TestJoin_RebindOverwritesIdentity(t *testing.T) {
	req := require.New(t)
	h, _ := newTestHub()
	a := connect(h, "A")

	req.NoError(h.Join("A", "alice", ""))
	req.NoError(h.Join("A", "alicia", ""))

	snaps := a.eventsOfType(t, "update user list")
	req.Len(snaps, 2)
	users := snaps[1]["users"].(map[string]any)
	req.Len(users, 1)
	req.Equal("alicia", users["A"].(map[string]any)["username"])
}

func TestJoin_EmptyUsernameRejected(t *testing.T) {
	req := require.New(t)
	h, _ := newTestHub()
	a := connect(h, "A")

	err := h.Join("A", "", "")
	req.ErrorIs(err, domain.ErrUsernameEmpty)
	req.Empty(a.eventsOfType(t, "update user list"))
}

func TestDisconnect_BoundAnnouncesDeparture(t *testing.T) {
	req := require.New(t)
	h, _ := newTestHub()
	connect(h, "A")
	b := connect(h, "B")
	req.NoError(h.Join("A", "alice", ""))
	req.NoError(h.Join("B", "bob", ""))

	h.Disconnect("A")

	snaps := b.eventsOfType(t, "update user list")
	// One per join, one for the departure.
	req.Len(snaps, 3)
	users := snaps[2]["users"].(map[string]any)
	req.NotContains(users, "A")
	req.Contains(users, "B")

	notices := b.eventsOfType(t, "chat message")
	req.Equal("alice left the chat.", notices[len(notices)-1]["text"])
}

func TestDisconnect_UnboundIsSilent(t *testing.T) {
	req := require.New(t)
	h, _ := newTestHub()
	connect(h, "A")
	b := connect(h, "B")

	h.Disconnect("A")

	req.Empty(b.eventsOfType(t, "update user list"))
	req.Empty(b.eventsOfType(t, "chat message"))
	req.Equal(1, h.Registry.Len())
}

func TestDisconnect_UnknownIDIsNoop(t *testing.T) {
	h, _ := newTestHub()
	connect(h, "A")

	h.Disconnect("never-connected")

	require.Equal(t, 1, h.Registry.Len())
}

func TestConnect_DeliversHistoryBatchOnlyToRequester(t *testing.T) {
	req := require.New(t)
	h, store := newTestHub()
	for i := 0; i < 60; i++ {
		user := domain.User{Username: "alice"}
		msg := domain.NewChatMessage(user, "older")
		msg.SentAt = time.Unix(1_700_000_000+int64(i), 0).UTC()
		req.NoError(store.Append(context.Background(), msg))
	}

	c := connect(h, "C")

	var batch []map[string]any
	require.Eventually(t, func() bool {
		batch = c.eventsOfType(t, "load old messages")
		return len(batch) == 1
	}, time.Second, 10*time.Millisecond)

	messages := batch[0]["messages"].([]any)
	req.Len(messages, 50)

	// Oldest first within the batch.
	first := messages[0].(map[string]any)["timestamp"].(string)
	last := messages[49].(map[string]any)["timestamp"].(string)
	req.Less(first, last)

	d := connect(h, "D")
	require.Eventually(t, func() bool {
		return len(d.eventsOfType(t, "load old messages")) == 1
	}, time.Second, 10*time.Millisecond)
	// C did not receive D's batch.
	req.Len(c.eventsOfType(t, "load old messages"), 1)
}

func TestConnect_EmptyStoreDeliversEmptyBatch(t *testing.T) {
	req := require.New(t)
	h, _ := newTestHub()

	c := connect(h, "C")

	var batch []map[string]any
	require.Eventually(t, func() bool {
		batch = c.eventsOfType(t, "load old messages")
		return len(batch) == 1
	}, time.Second, 10*time.Millisecond)

	// An empty backlog is still a well-formed array on the wire.
	messages, ok := batch[0]["messages"].([]any)
	req.True(ok)
	req.Empty(messages)
}

func TestConnect_HistoryFailureIsConnectionLocal(t *testing.T) {
	h, store := newTestHub()
	store.recentErr = errors.New("store down")

	c := connect(h, "C")

	require.Never(t, func() bool {
		return len(c.eventsOfType(t, "load old messages")) > 0
	}, 200*time.Millisecond, 20*time.Millisecond)

	// The connection still works.
	require.NoError(t, h.Join("C", "carol", ""))
	require.Len(t, c.eventsOfType(t, "update user list"), 1)
}

func TestBroadcast_SlowConsumerDropsFrameOnly(t *testing.T) {
	req := require.New(t)
	h, _ := newTestHub()
	connect(h, "A")
	slow := connect(h, "B")
	slow.mu.Lock()
	slow.full = true
	slow.mu.Unlock()

	req.NoError(h.Join("A", "alice", ""))

	// The slow consumer lost the frame but is still registered.
	req.Equal(2, h.Registry.Len())
	req.Empty(slow.eventsOfType(t, "update user list"))
}
