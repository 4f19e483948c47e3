package domain

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotifTaskCreated   NotificationType = "task_created"
	NotifTaskUpdated   NotificationType = "task_updated"
	NotifTaskDeleted   NotificationType = "task_deleted"
	NotifTaskCompleted NotificationType = "task_completed"
	NotifSystem        NotificationType = "system"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotifTaskCreated, NotifTaskUpdated, NotifTaskDeleted, NotifTaskCompleted, NotifSystem:
		return true
	}
	return false
}

// Notification is a persisted per-user notification record.
// Only the Read flag ever changes after creation (false to true).
type Notification struct {
	ID            uuid.UUID
	UserID        string
	Type          NotificationType
	Message       string
	Read          bool
	RelatedTaskID *string
	CreatedAt     time.Time
}
