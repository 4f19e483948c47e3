//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"task-hub/contract"
	"task-hub/domain"
	"task-hub/domain/event"
	"task-hub/errors"
	"task-hub/repositories"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IChatService interface {
	PostMessage(ctx context.Context, sender *domain.Connection, room, content string) (domain.ChatMessage, error)
	GetHistory(ctx context.Context, room string, limit int) ([]domain.ChatMessage, error)
}

// ChatService validates, persists, and broadcasts chat messages, and
// serves bounded chronological history. Persistence always happens
// before any delivery attempt; delivery failure never affects the
// stored record.
type ChatService struct {
	log              *slog.Logger
	repository       repositories.IMessageRepository
	broadcaster      contract.Broadcaster
	maxContentLength int
	historyLimit     int
}

func NewChatService(log *slog.Logger, repository repositories.IMessageRepository,
	broadcaster contract.Broadcaster, maxContentLength, historyLimit int) *ChatService {
	return &ChatService{
		log:              log,
		repository:       repository,
		broadcaster:      broadcaster,
		maxContentLength: maxContentLength,
		historyLimit:     historyLimit,
	}
}

// PostMessage persists the sender's message and broadcasts it to every
// member of the room, sender included: the sender's own echo comes from
// the server's authoritative copy, not an optimistic local append.
// Validation failures are returned to the caller and nothing is stored
// or broadcast.
func (s *ChatService) PostMessage(ctx context.Context, sender *domain.Connection, room, content string) (domain.ChatMessage, error) {
	if room == "" {
		room = domain.DefaultRoom
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.ChatMessage{}, errors.ErrEmptyContent
	}
	if len([]rune(content)) > s.maxContentLength {
		return domain.ChatMessage{}, errors.ErrContentTooLong
	}

	message := domain.ChatMessage{
		ID:        uuid.New(),
		UserID:    sender.Identity.UserID,
		Username:  sender.Identity.Username,
		Content:   content,
		Room:      room,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repository.StoreMessage(message); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("store message: %w", err)
	}

	s.broadcaster.ToRoom(ctx, room, event.Envelope{
		Event: event.ChatMessage,
		Data:  event.FromChatMessage(message),
	})
	return message, nil
}

// GetHistory returns the most recent messages of a room in ascending
// CreatedAt order (oldest first), so callers can render top-to-bottom
// without re-sorting. A non-positive limit falls back to the default.
func (s *ChatService) GetHistory(ctx context.Context, room string, limit int) ([]domain.ChatMessage, error) {
	if room == "" {
		room = domain.DefaultRoom
	}
	if limit <= 0 {
		limit = s.historyLimit
	}
	messages, err := s.repository.GetRecent(room, limit)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return lo.Reverse(messages), nil
}
