//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"
	"time"

	"task-hub/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type IMessageRepository interface {
	StoreMessage(message domain.ChatMessage) error
	GetRecent(room string, limit int) ([]domain.ChatMessage, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

type diskMessage struct {
	ID      uuid.UUID `json:"id"`
	UserID  string    `json:"userId"`
	Author  string    `json:"author"`
	Content string    `json:"content"`
	Room    string    `json:"room"`
	At      int64     `json:"at"` // unix nanoseconds, UTC
}

// StoreMessage persists a message in BadgerDB.
// The key is formatted as "msg:{room}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
func (m MessageRepository) StoreMessage(message domain.ChatMessage) error {
	key := fmt.Sprintf("msg:%s:%019d:%s",
		message.Room,
		message.CreatedAt.UnixNano(),
		message.ID,
	)
	bytes, err := json.Marshal(fromChatMessage(message))
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// GetRecent retrieves the most recent messages for a room, newest first,
// bounded by limit. Thanks to the padded timestamp in the key, a reverse
// prefix scan walks messages from newest to oldest; callers that need
// chronological order reverse the result.
func (m MessageRepository) GetRecent(room string, limit int) ([]domain.ChatMessage, error) {
	var rawMessages [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("msg:%s:", room))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the newest possible key for this room, then walk back
		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if len(rawMessages) == limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", limit))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				rawMessages = append(rawMessages, append([]byte{}, value...))
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

	messages := make([]domain.ChatMessage, 0, len(rawMessages))
	for _, b := range rawMessages {
		var dm diskMessage
		if err = json.Unmarshal(b, &dm); err != nil {
			return nil, err
		}
		messages = append(messages, toChatMessage(dm))
	}
	return messages, nil
}

func fromChatMessage(message domain.ChatMessage) diskMessage {
	return diskMessage{
		ID:      message.ID,
		UserID:  message.UserID,
		Author:  message.Username,
		Content: message.Content,
		Room:    message.Room,
		At:      message.CreatedAt.UnixNano(),
	}
}

func toChatMessage(dm diskMessage) domain.ChatMessage {
	return domain.ChatMessage{
		ID:        dm.ID,
		UserID:    dm.UserID,
		Username:  dm.Author,
		Content:   dm.Content,
		Room:      dm.Room,
		CreatedAt: time.Unix(0, dm.At).UTC(),
	}
}
