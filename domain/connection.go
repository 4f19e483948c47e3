package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultRoom is joined automatically when a connection is admitted,
// before any client-driven join is processed.
const DefaultRoom = "general"

type ConnectionID string

func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.NewString())
}

// Connection is one live, authenticated transport session.
// It is owned exclusively by the registry: created on admit,
// destroyed on retract.
type Connection struct {
	ID            ConnectionID
	Identity      Identity
	EstablishedAt time.Time
}
