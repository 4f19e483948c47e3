//go:generate go run go.uber.org/mock/mockgen -source=notification.go -destination=../mocks/mock_notification_repository.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"task-hub/domain"
	"task-hub/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type INotificationRepository interface {
	Store(notification domain.Notification) error
	ListByUser(userID string, limit int) ([]domain.Notification, error)
	MarkRead(userID string, id uuid.UUID) (domain.Notification, error)
	MarkAllRead(userID string) (int, error)
	Delete(userID string, id uuid.UUID) error
}

// NotificationRepository persists per-user notification records.
// Keys are "notif:{userID}:{timestamp_padded}:{uuid}" so a reverse prefix
// scan per user yields newest-first order, same scheme as messages.
type NotificationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewNotificationRepository(db *badger.DB, log *slog.Logger) NotificationRepository {
	return NotificationRepository{db: db, log: log}
}

type diskNotification struct {
	ID            uuid.UUID `json:"id"`
	UserID        string    `json:"userId"`
	Type          string    `json:"type"`
	Message       string    `json:"message"`
	Read          bool      `json:"read"`
	RelatedTaskID *string   `json:"relatedTaskId,omitempty"`
	At            int64     `json:"at"` // unix nanoseconds, UTC
}

func notificationKey(userID string, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("notif:%s:%019d:%s", userID, at.UnixNano(), id))
}

func (n NotificationRepository) Store(notification domain.Notification) error {
	bytes, err := json.Marshal(fromNotification(notification))
	if err != nil {
		return err
	}
	return n.db.Update(func(txn *badger.Txn) error {
		return txn.Set(notificationKey(notification.UserID, notification.CreatedAt, notification.ID), bytes)
	})
}

func (n NotificationRepository) ListByUser(userID string, limit int) ([]domain.Notification, error) {
	var notifications []domain.Notification
	err := n.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("notif:%s:", userID))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if len(notifications) == limit {
				break
			}
			err := it.Item().Value(func(value []byte) error {
				var dn diskNotification
				if err := json.Unmarshal(value, &dn); err != nil {
					return err
				}
				notifications = append(notifications, toNotification(dn))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return notifications, err
}

// MarkRead flips the read flag of one notification owned by userID.
// Returns ErrNotificationNotFound when the id does not exist for that
// user; a notification can never be read-flagged across users.
func (n NotificationRepository) MarkRead(userID string, id uuid.UUID) (domain.Notification, error) {
	var updated domain.Notification
	err := n.db.Update(func(txn *badger.Txn) error {
		key, dn, err := n.findByID(txn, userID, id)
		if err != nil {
			return err
		}
		dn.Read = true
		bytes, err := json.Marshal(dn)
		if err != nil {
			return err
		}
		if err = txn.Set(key, bytes); err != nil {
			return err
		}
		updated = toNotification(dn)
		return nil
	})
	return updated, err
}

// MarkAllRead flips every unread notification of userID and reports how
// many records changed. Notifications of other users are untouched.
func (n NotificationRepository) MarkAllRead(userID string) (int, error) {
	count := 0
	err := n.db.Update(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("notif:%s:", userID))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		type pending struct {
			key   []byte
			value []byte
		}
		var updates []pending

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)
			err := item.Value(func(value []byte) error {
				var dn diskNotification
				if err := json.Unmarshal(value, &dn); err != nil {
					return err
				}
				if dn.Read {
					return nil
				}
				dn.Read = true
				bytes, err := json.Marshal(dn)
				if err != nil {
					return err
				}
				updates = append(updates, pending{key: key, value: bytes})
				return nil
			})
			if err != nil {
				return err
			}
		}
		for _, u := range updates {
			if err := txn.Set(u.key, u.value); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (n NotificationRepository) Delete(userID string, id uuid.UUID) error {
	return n.db.Update(func(txn *badger.Txn) error {
		key, _, err := n.findByID(txn, userID, id)
		if err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

// findByID scans the user's prefix for a notification id. The id sits at
// the end of the key, so the scan stops at the first match.
func (n NotificationRepository) findByID(txn *badger.Txn, userID string, id uuid.UUID) ([]byte, diskNotification, error) {
	prefix := []byte(fmt.Sprintf("notif:%s:", userID))
	suffix := ":" + id.String()
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		key := item.KeyCopy(nil)
		if !strings.HasSuffix(string(key), suffix) {
			continue
		}
		var dn diskNotification
		err := item.Value(func(value []byte) error {
			return json.Unmarshal(value, &dn)
		})
		return key, dn, err
	}
	return nil, diskNotification{}, errors.ErrNotificationNotFound
}

func fromNotification(notification domain.Notification) diskNotification {
	return diskNotification{
		ID:            notification.ID,
		UserID:        notification.UserID,
		Type:          string(notification.Type),
		Message:       notification.Message,
		Read:          notification.Read,
		RelatedTaskID: notification.RelatedTaskID,
		At:            notification.CreatedAt.UnixNano(),
	}
}

func toNotification(dn diskNotification) domain.Notification {
	return domain.Notification{
		ID:            dn.ID,
		UserID:        dn.UserID,
		Type:          domain.NotificationType(dn.Type),
		Message:       dn.Message,
		Read:          dn.Read,
		RelatedTaskID: dn.RelatedTaskID,
		CreatedAt:     time.Unix(0, dn.At).UTC(),
	}
}
