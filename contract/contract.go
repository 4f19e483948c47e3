//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"task-hub/domain"
	"task-hub/domain/event"
)

// EventSink is one live connection's outbound side. Consume must never
// block the caller longer than the sink's own backpressure policy allows.
type EventSink interface {
	Consume(ctx context.Context, e event.Envelope) error
}

// IRegistry is the single source of truth for "is user U currently
// reachable" and for room membership. Both views are kept consistent
// behind one mutual-exclusion boundary.
type IRegistry interface {
	Admit(identity domain.Identity, sink EventSink) *domain.Connection
	Retract(id domain.ConnectionID)
	Lookup(userID string) (*domain.Connection, bool)
	SinkOf(id domain.ConnectionID) (EventSink, bool)
	Join(id domain.ConnectionID, room string)
	Leave(id domain.ConnectionID, room string)
	MembersOf(room string) []domain.ConnectionID
}

// Broadcaster is the narrow delivery capability handed to the chat and
// notification pipelines. CRUD code depends on this, never on the
// transport itself.
type Broadcaster interface {
	// ToRoom delivers to every member of the room at call time,
	// skipping any excluded connections. Fire-and-forget per recipient.
	ToRoom(ctx context.Context, room string, e event.Envelope, exclude ...domain.ConnectionID)
	// ToAll delivers to every registered connection.
	ToAll(ctx context.Context, e event.Envelope, exclude ...domain.ConnectionID)
	// ToUser reports whether the user was reachable. An unreachable
	// user is not an error.
	ToUser(ctx context.Context, userID string, e event.Envelope) bool
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
