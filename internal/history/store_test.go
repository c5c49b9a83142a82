package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gokalp/parley/internal/domain"
)

func openTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := OpenBadger(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func seedMessages(t *testing.T, store *BadgerStore, n int) []domain.ChatMessage {
	t.Helper()
	base := time.Unix(1_700_000_000, 0).UTC()
	msgs := make([]domain.ChatMessage, 0, n)
	for i := 0; i < n; i++ {
		msg := domain.NewChatMessage(domain.User{Username: "alice"}, fmt.Sprintf("message %d", i))
		msg.SentAt = base.Add(time.Duration(i) * time.Millisecond)
		require.NoError(t, store.Append(context.Background(), msg))
		msgs = append(msgs, msg)
	}
	return msgs
}

func TestBadgerStore_RecentOnEmptyStore(t *testing.T) {
	store := openTestStore(t)

	messages, err := store.Recent(context.Background(), 50)
	require.NoError(t, err)
	require.Empty(t, messages)
}

func TestBadgerStore_RecentCapsAndOrders(t *testing.T) {
	req := require.New(t)
	store := openTestStore(t)
	seeded := seedMessages(t, store, 60)

	messages, err := store.Recent(context.Background(), 50)
	req.NoError(err)
	req.Len(messages, 50)

	// The 50 newest, oldest first.
	req.Equal("message 10", messages[0].Text)
	req.Equal("message 59", messages[49].Text)
	for i := 1; i < len(messages); i++ {
		req.False(messages[i].SentAt.Before(messages[i-1].SentAt))
	}
	req.Equal(seeded[10].ID, messages[0].ID)
}

func TestBadgerStore_RecentWithFewerThanLimit(t *testing.T) {
	req := require.New(t)
	store := openTestStore(t)
	seedMessages(t, store, 3)

	messages, err := store.Recent(context.Background(), 50)
	req.NoError(err)
	req.Len(messages, 3)
	req.Equal("message 0", messages[0].Text)
}

func TestBadgerStore_RoundtripPreservesFields(t *testing.T) {
	req := require.New(t)
	store := openTestStore(t)
	msg := domain.NewChatMessage(domain.User{Username: "bob", AvatarURL: "http://a/b.png"}, "exact words")
	req.NoError(store.Append(context.Background(), msg))

	messages, err := store.Recent(context.Background(), 1)
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal(msg.ID, messages[0].ID)
	req.Equal("bob", messages[0].Username)
	req.Equal("http://a/b.png", messages[0].AvatarURL)
	req.Equal("exact words", messages[0].Text)
	req.True(msg.SentAt.Equal(messages[0].SentAt))
}

func TestBadgerStore_SameNanosecondDoesNotLoseMessages(t *testing.T) {
	req := require.New(t)
	store := openTestStore(t)
	at := time.Unix(1_700_000_000, 0).UTC()
	for i := 0; i < 2; i++ {
		msg := domain.NewChatMessage(domain.User{Username: "alice"}, "tie")
		msg.SentAt = at
		req.NoError(store.Append(context.Background(), msg))
	}

	messages, err := store.Recent(context.Background(), 10)
	req.NoError(err)
	req.Len(messages, 2)
}
