package history

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/gokalp/parley/internal/domain"
)

// Writer decouples message fan-out from persistence: the router enqueues
// and moves on, a single goroutine drains into the store. The policy for
// both a full queue and a failed write is log-and-drop; a stalled store
// must never become a delivery failure.
type Writer struct {
	store Store
	queue chan domain.ChatMessage
}

func NewWriter(store Store, buffer int) *Writer {
	return &Writer{
		store: store,
		queue: make(chan domain.ChatMessage, buffer),
	}
}

// Enqueue hands a message to the writer without blocking. Dropped with a
// warning if the queue is full.
func (w *Writer) Enqueue(msg domain.ChatMessage) {
	select {
	case w.queue <- msg:
	default:
		log.Warn().Str("module", "history.writer").Str("id", msg.ID.String()).Msg("write queue full, message dropped")
	}
}

// Run drains the queue until ctx is done.
func (w *Writer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "history.writer").Msg("writer stopped")
			return
		case msg := <-w.queue:
			if err := w.store.Append(ctx, msg); err != nil {
				log.Error().Err(err).Str("module", "history.writer").Str("id", msg.ID.String()).Msg("append failed, message dropped")
			}
		}
	}
}
