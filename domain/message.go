// Messages are immutable once created; their ordering key is CreatedAt ascending.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage represents a persisted chat event.
type ChatMessage struct {
	ID        uuid.UUID
	UserID    string
	Username  string
	Content   string
	Room      string
	CreatedAt time.Time
}
