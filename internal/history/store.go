// Package history persists chat messages and serves the bounded backlog
// delivered to late joiners.
package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"

	"github.com/gokalp/parley/internal/domain"
)

// Store is the append-only record store the router writes to and the
// connect path reads from. Recent returns at most limit of the newest
// messages, reordered to ascending (chronological) order.
type Store interface {
	Append(ctx context.Context, msg domain.ChatMessage) error
	Recent(ctx context.Context, limit int) ([]domain.ChatMessage, error)
	Close() error
}

const keyPrefix = "msg:"

// maxTimestampKey seeks past every possible padded-unixnano component.
const maxTimestampKey = "9999999999999999999"

// BadgerStore keeps messages in an embedded badger database.
//
// The key is "msg:{timestamp_padded}:{uuid}":
//  1. 19-digit zero padding makes lexicographic order chronological.
//  2. The uuid disambiguates two messages landing on the same nanosecond.
type BadgerStore struct {
	db *badger.DB
}

func OpenBadger(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Append(_ context.Context, msg domain.ChatMessage) error {
	key := fmt.Sprintf("%s%019d:%s", keyPrefix, msg.SentAt.UnixNano(), msg.ID)
	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// Recent does a reverse scan from the newest key, collects up to limit
// entries, then flips them to chronological order.
func (s *BadgerStore) Recent(_ context.Context, limit int) ([]domain.ChatMessage, error) {
	var messages []domain.ChatMessage
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(keyPrefix)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := append([]byte(keyPrefix), []byte(maxTimestampKey)...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if len(messages) == limit {
				break
			}
			err := it.Item().Value(func(value []byte) error {
				var msg domain.ChatMessage
				if err := json.Unmarshal(value, &msg); err != nil {
					return err
				}
				messages = append(messages, msg)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	lo.Reverse(messages)
	return messages, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
