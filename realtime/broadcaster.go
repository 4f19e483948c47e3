package realtime

import (
	"context"
	"log/slog"

	"task-hub/contract"
	"task-hub/domain"
	"task-hub/domain/event"
)

// Broadcaster delivers typed events to room members, to everyone, or to
// one specific user. Delivery is best-effort per recipient: a failure on
// one sink never prevents delivery to the others, and never reaches the
// caller. Recipients are resolved at call time from the registry.
type Broadcaster struct {
	log      *slog.Logger
	registry *Registry
}

func NewBroadcaster(log *slog.Logger, registry *Registry) *Broadcaster {
	return &Broadcaster{log: log, registry: registry}
}

func (b *Broadcaster) ToRoom(ctx context.Context, room string, e event.Envelope, exclude ...domain.ConnectionID) {
	b.fanout(ctx, e, b.registry.SinksForRoom(room, exclude...))
}

func (b *Broadcaster) ToAll(ctx context.Context, e event.Envelope, exclude ...domain.ConnectionID) {
	b.fanout(ctx, e, b.registry.AllSinks(exclude...))
}

// ToUser reports whether the user held a live connection at call time.
// This is the only delivery primitive with a result: the notification
// dispatcher uses it to record whether a live push happened. It never
// retries.
func (b *Broadcaster) ToUser(ctx context.Context, userID string, e event.Envelope) bool {
	conn, ok := b.registry.Lookup(userID)
	if !ok {
		return false
	}
	sink, ok := b.registry.SinkOf(conn.ID)
	if !ok {
		return false
	}
	if err := sink.Consume(ctx, e); err != nil {
		b.log.Debug("live push not consumed", "user_id", userID, "event", e.Event, "error", err)
	}
	return true
}

func (b *Broadcaster) fanout(ctx context.Context, e event.Envelope, sinks []contract.EventSink) {
	for _, sink := range sinks {
		if err := sink.Consume(ctx, e); err != nil {
			b.log.Debug("event dropped by sink", "event", e.Event, "error", err)
		}
	}
}
