package realtime

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"task-hub/contract"
	"task-hub/domain"
	"task-hub/domain/event"
)

// TypingTracker holds the ephemeral per-room set of usernames currently
// signaling "typing". State is derived solely from start/stop events and
// is never persisted. There is no server-side timeout by default: a
// client that hard-disconnects mid-typing stays marked as typing until
// another signal corrects it, or until the optional idle sweeper runs.
type TypingTracker struct {
	mu          sync.Mutex
	log         *slog.Logger
	broadcaster contract.Broadcaster
	rooms       map[string]map[string]time.Time // room -> username -> last signal
}

func NewTypingTracker(log *slog.Logger, broadcaster contract.Broadcaster) *TypingTracker {
	return &TypingTracker{
		log:         log,
		broadcaster: broadcaster,
		rooms:       make(map[string]map[string]time.Time),
	}
}

// Start marks the connection's username as typing in the room and
// broadcasts typing:start to the other members.
func (t *TypingTracker) Start(ctx context.Context, conn *domain.Connection, room string) {
	t.mu.Lock()
	if _, ok := t.rooms[room]; !ok {
		t.rooms[room] = make(map[string]time.Time)
	}
	t.rooms[room][conn.Identity.Username] = time.Now().UTC()
	t.mu.Unlock()

	t.broadcaster.ToRoom(ctx, room, event.Envelope{
		Event: event.TypingStart,
		Data:  event.Typing{Username: conn.Identity.Username, Room: room},
	}, conn.ID)
}

// Stop clears the typing mark and broadcasts typing:stop symmetrically.
// A stop without a prior start is a no-op on the set, but the broadcast
// still goes out so clients converge.
func (t *TypingTracker) Stop(ctx context.Context, conn *domain.Connection, room string) {
	t.mu.Lock()
	if usernames, ok := t.rooms[room]; ok {
		delete(usernames, conn.Identity.Username)
		if len(usernames) == 0 {
			delete(t.rooms, room)
		}
	}
	t.mu.Unlock()

	t.broadcaster.ToRoom(ctx, room, event.Envelope{
		Event: event.TypingStop,
		Data:  event.Typing{Username: conn.Identity.Username, Room: room},
	}, conn.ID)
}

// TypingIn returns the usernames currently marked as typing in a room,
// sorted for stable inspection.
func (t *TypingTracker) TypingIn(room string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	usernames := make([]string, 0, len(t.rooms[room]))
	for username := range t.rooms[room] {
		usernames = append(usernames, username)
	}
	sort.Strings(usernames)
	return usernames
}

// Expire clears entries whose last signal is older than maxIdle and
// broadcasts typing:stop for each. This is the opt-in idle policy run by
// the sweeper worker; with the sweeper disabled, typing state only ever
// changes through Start and Stop.
func (t *TypingTracker) Expire(ctx context.Context, maxIdle time.Duration) {
	cutoff := time.Now().UTC().Add(-maxIdle)

	type stale struct {
		room     string
		username string
	}
	var expired []stale

	t.mu.Lock()
	for room, usernames := range t.rooms {
		for username, lastSignal := range usernames {
			if lastSignal.Before(cutoff) {
				delete(usernames, username)
				expired = append(expired, stale{room: room, username: username})
			}
		}
		if len(usernames) == 0 {
			delete(t.rooms, room)
		}
	}
	t.mu.Unlock()

	for _, s := range expired {
		t.log.Debug("typing state expired", "room", s.room, "username", s.username)
		t.broadcaster.ToRoom(ctx, s.room, event.Envelope{
			Event: event.TypingStop,
			Data:  event.Typing{Username: s.username, Room: s.room},
		})
	}
}
