//go:generate go run go.uber.org/mock/mockgen -source=notification_service.go -destination=../mocks/mock_notification_service.go -package=mocks
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"task-hub/contract"
	"task-hub/domain"
	"task-hub/domain/event"
	"task-hub/errors"
	"task-hub/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

type NotifyCommand struct {
	UserID        string                  `validate:"required"`
	Type          domain.NotificationType `validate:"required"`
	Message       string                  `validate:"required"`
	RelatedTaskID *string
}

type INotificationService interface {
	Notify(ctx context.Context, cmd NotifyCommand) (domain.Notification, error)
	List(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, userID string, id uuid.UUID) (domain.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) error
}

// NotificationService persists a notification record, then makes one
// best-effort live-delivery attempt. The persisted record is the source
// of truth; clients that were offline discover it via the pull path.
// Read-state changes are store-only and trigger no live push.
type NotificationService struct {
	log         *slog.Logger
	repository  repositories.INotificationRepository
	broadcaster contract.Broadcaster
	listLimit   int
}

func NewNotificationService(log *slog.Logger, repository repositories.INotificationRepository,
	broadcaster contract.Broadcaster, listLimit int) *NotificationService {
	return &NotificationService{
		log:         log,
		repository:  repository,
		broadcaster: broadcaster,
		listLimit:   listLimit,
	}
}

// Notify persists the record first, then attempts a live push. The
// record is returned regardless of delivery outcome; an unreachable
// recipient is not an error and is never retried.
func (s *NotificationService) Notify(ctx context.Context, cmd NotifyCommand) (domain.Notification, error) {
	if err := validate.Struct(cmd); err != nil {
		return domain.Notification{}, err
	}
	if !cmd.Type.Valid() {
		return domain.Notification{}, errors.ErrUnknownNotifType
	}

	notification := domain.Notification{
		ID:            uuid.New(),
		UserID:        cmd.UserID,
		Type:          cmd.Type,
		Message:       cmd.Message,
		Read:          false,
		RelatedTaskID: cmd.RelatedTaskID,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.repository.Store(notification); err != nil {
		return domain.Notification{}, fmt.Errorf("store notification: %w", err)
	}

	delivered := s.broadcaster.ToUser(ctx, cmd.UserID, event.Envelope{
		Event: event.NotificationNew,
		Data:  event.FromNotification(notification),
	})
	if !delivered {
		s.log.Debug("recipient offline, notification stored only", "user_id", cmd.UserID)
	}
	return notification, nil
}

func (s *NotificationService) List(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = s.listLimit
	}
	return s.repository.ListByUser(userID, limit)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID string, id uuid.UUID) (domain.Notification, error) {
	return s.repository.MarkRead(userID, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return s.repository.MarkAllRead(userID)
}

func (s *NotificationService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	return s.repository.Delete(userID, id)
}
