package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"task-hub/domain"
	"task-hub/errors"
	"task-hub/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func chatSender() *domain.Connection {
	return &domain.Connection{
		ID:            domain.NewConnectionID(),
		Identity:      domain.Identity{UserID: "u1", Username: "alice", Role: "user"},
		EstablishedAt: time.Now().UTC(),
	}
}

func TestChatService_PostMessage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t.Run("should persist then broadcast to the whole room, sender included", func(t *testing.T) {
		req := require.New(t)
		mockRepo := mocks.NewMockIMessageRepository(ctrl)
		mockBroadcaster := mocks.NewMockBroadcaster(ctrl)
		svc := NewChatService(slog.Default(), mockRepo, mockBroadcaster, 1000, 50)

		var stored domain.ChatMessage
		// Persistence always comes before the delivery attempt
		persisted := mockRepo.EXPECT().
			StoreMessage(gomock.Any()).
			DoAndReturn(func(m domain.ChatMessage) error {
				stored = m
				return nil
			}).
			Times(1)
		// No exclusion: the sender's echo comes from the server copy
		mockBroadcaster.EXPECT().
			ToRoom(gomock.Any(), "general", gomock.Any()).
			After(persisted).
			Times(1)

		message, err := svc.PostMessage(context.Background(), chatSender(), "general", "  hello world  ")

		req.NoError(err)
		req.Equal("hello world", message.Content)
		req.Equal("alice", message.Username)
		req.Equal("general", message.Room)
		req.Equal(stored, message)
	})

	t.Run("should default the room to general", func(t *testing.T) {
		req := require.New(t)
		mockRepo := mocks.NewMockIMessageRepository(ctrl)
		mockBroadcaster := mocks.NewMockBroadcaster(ctrl)
		svc := NewChatService(slog.Default(), mockRepo, mockBroadcaster, 1000, 50)

		mockRepo.EXPECT().StoreMessage(gomock.Any()).Return(nil).Times(1)
		mockBroadcaster.EXPECT().ToRoom(gomock.Any(), "general", gomock.Any()).Times(1)

		message, err := svc.PostMessage(context.Background(), chatSender(), "", "hi")

		req.NoError(err)
		req.Equal("general", message.Room)
	})

	t.Run("should reject blank content without storing or broadcasting", func(t *testing.T) {
		req := require.New(t)
		mockRepo := mocks.NewMockIMessageRepository(ctrl)
		mockBroadcaster := mocks.NewMockBroadcaster(ctrl)
		svc := NewChatService(slog.Default(), mockRepo, mockBroadcaster, 1000, 50)

		mockRepo.EXPECT().StoreMessage(gomock.Any()).Times(0)

		_, err := svc.PostMessage(context.Background(), chatSender(), "general", "   \n\t ")

		req.ErrorIs(err, errors.ErrEmptyContent)
	})

	t.Run("should accept exactly 1000 characters and reject 1001", func(t *testing.T) {
		req := require.New(t)
		mockRepo := mocks.NewMockIMessageRepository(ctrl)
		mockBroadcaster := mocks.NewMockBroadcaster(ctrl)
		svc := NewChatService(slog.Default(), mockRepo, mockBroadcaster, 1000, 50)

		mockRepo.EXPECT().StoreMessage(gomock.Any()).Return(nil).Times(1)
		mockBroadcaster.EXPECT().ToRoom(gomock.Any(), "general", gomock.Any()).Times(1)

		_, err := svc.PostMessage(context.Background(), chatSender(), "general", strings.Repeat("a", 1000))
		req.NoError(err)

		// One character over the limit: never persisted
		_, err = svc.PostMessage(context.Background(), chatSender(), "general", strings.Repeat("a", 1001))
		req.ErrorIs(err, errors.ErrContentTooLong)
	})

	t.Run("should not broadcast when persistence fails", func(t *testing.T) {
		req := require.New(t)
		mockRepo := mocks.NewMockIMessageRepository(ctrl)
		mockBroadcaster := mocks.NewMockBroadcaster(ctrl)
		svc := NewChatService(slog.Default(), mockRepo, mockBroadcaster, 1000, 50)

		mockRepo.EXPECT().StoreMessage(gomock.Any()).Return(fmt.Errorf("store down")).Times(1)

		_, err := svc.PostMessage(context.Background(), chatSender(), "general", "hello")

		req.Error(err)
	})
}

func TestChatService_GetHistory(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t.Run("should reorder newest-first storage into ascending order", func(t *testing.T) {
		req := require.New(t)
		mockRepo := mocks.NewMockIMessageRepository(ctrl)
		svc := NewChatService(slog.Default(), mockRepo, mocks.NewMockBroadcaster(ctrl), 1000, 50)

		at := time.Now().UTC()
		b := domain.ChatMessage{ID: uuid.New(), Content: "B", CreatedAt: at.Add(time.Minute)}
		c := domain.ChatMessage{ID: uuid.New(), Content: "C", CreatedAt: at.Add(2 * time.Minute)}

		// Given three stored messages the store returns the newest two, descending
		mockRepo.EXPECT().GetRecent("general", 2).Return([]domain.ChatMessage{c, b}, nil)

		messages, err := svc.GetHistory(context.Background(), "general", 2)

		req.NoError(err)
		req.Equal([]domain.ChatMessage{b, c}, messages)
	})

	t.Run("should fall back to the default limit", func(t *testing.T) {
		req := require.New(t)
		mockRepo := mocks.NewMockIMessageRepository(ctrl)
		svc := NewChatService(slog.Default(), mockRepo, mocks.NewMockBroadcaster(ctrl), 1000, 50)

		mockRepo.EXPECT().GetRecent("general", 50).Return(nil, nil)

		_, err := svc.GetHistory(context.Background(), "", 0)

		req.NoError(err)
	})
}
