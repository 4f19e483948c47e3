// Package event defines the live event vocabulary exchanged with clients.
// Event names follow the "scope:action" convention of the wire protocol.
package event

import (
	"time"

	"task-hub/domain"

	"github.com/google/uuid"
)

const (
	ChatMessage     = "chat:message"
	ChatHistory     = "chat:history"
	RoomJoin        = "room:join"
	RoomJoined      = "room:joined"
	RoomLeave       = "room:leave"
	RoomLeft        = "room:left"
	TypingStart     = "typing:start"
	TypingStop      = "typing:stop"
	NotificationNew = "notification:new"
	TaskCreated     = "task:created"
	TaskUpdated     = "task:updated"
	TaskDeleted     = "task:deleted"
	UserJoined      = "user:joined"
	UserLeft        = "user:left"
	Error           = "error"
)

// Envelope is the frame written to and read from a live connection.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Message is the outbound shape of a persisted chat message.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	Room      string    `json:"room"`
	CreatedAt time.Time `json:"createdAt"`
}

func FromChatMessage(m domain.ChatMessage) Message {
	return Message{
		ID:        m.ID,
		Username:  m.Username,
		Content:   m.Content,
		Room:      m.Room,
		CreatedAt: m.CreatedAt,
	}
}

// Presence announces a user joining or leaving the server.
type Presence struct {
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

// Typing signals a typing indicator change inside a room.
type Typing struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

// RoomAck acknowledges a join or leave back to the requester.
type RoomAck struct {
	Room string `json:"room"`
}

// Notification is the outbound shape of a persisted notification.
type Notification struct {
	ID            uuid.UUID               `json:"id"`
	Type          domain.NotificationType `json:"type"`
	Message       string                  `json:"message"`
	Read          bool                    `json:"read"`
	RelatedTaskID *string                 `json:"relatedTaskId,omitempty"`
	CreatedAt     time.Time               `json:"createdAt"`
}

func FromNotification(n domain.Notification) Notification {
	return Notification{
		ID:            n.ID,
		Type:          n.Type,
		Message:       n.Message,
		Read:          n.Read,
		RelatedTaskID: n.RelatedTaskID,
		CreatedAt:     n.CreatedAt,
	}
}

// Task is a task summary rebroadcast to every connection, stamped
// with the acting username.
type Task struct {
	TaskID   string `json:"taskId,omitempty"`
	Title    string `json:"title,omitempty"`
	Status   string `json:"status,omitempty"`
	Username string `json:"username"`
}

// Failure is sent only to the connection that triggered the error.
type Failure struct {
	Message string `json:"message"`
}
