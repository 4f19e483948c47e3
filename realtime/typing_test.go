package realtime

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"task-hub/domain"
	"task-hub/domain/event"

	"github.com/stretchr/testify/require"
)

func typingSetup(t *testing.T) (*Registry, *TypingTracker, *domain.Connection, *recordingSink) {
	t.Helper()
	registry := NewRegistry(slog.Default())
	broadcaster := NewBroadcaster(slog.Default(), registry)
	tracker := NewTypingTracker(slog.Default(), broadcaster)

	observer := &recordingSink{}
	alice := registry.Admit(identityFor("u1", "alice"), &recordingSink{})
	bob := registry.Admit(identityFor("u2", "bob"), observer)
	registry.Join(alice.ID, "general")
	registry.Join(bob.ID, "general")
	return registry, tracker, alice, observer
}

func TestTypingTracker_Start_Then_Stop_Empties_The_Set(t *testing.T) {
	req := require.New(t)
	_, tracker, alice, _ := typingSetup(t)
	ctx := context.Background()

	tracker.Start(ctx, alice, "general")
	req.Equal([]string{"alice"}, tracker.TypingIn("general"))

	tracker.Stop(ctx, alice, "general")
	req.Empty(tracker.TypingIn("general"))
}

func TestTypingTracker_Stop_Without_Start_Is_A_NoOp(t *testing.T) {
	req := require.New(t)
	_, tracker, alice, _ := typingSetup(t)

	tracker.Stop(context.Background(), alice, "general")

	req.Empty(tracker.TypingIn("general"))
}

func TestTypingTracker_Broadcast_Excludes_The_Originator(t *testing.T) {
	req := require.New(t)
	_, tracker, alice, observer := typingSetup(t)

	tracker.Start(context.Background(), alice, "general")

	// Only bob observes the signal; alice's own sink stays silent
	req.Equal(1, observer.count())
	observer.mu.Lock()
	e := observer.events[0]
	observer.mu.Unlock()
	req.Equal(event.TypingStart, e.Event)
	req.Equal(event.Typing{Username: "alice", Room: "general"}, e.Data)
}

func TestTypingTracker_Expire_Clears_Stale_Entries(t *testing.T) {
	req := require.New(t)
	_, tracker, alice, observer := typingSetup(t)
	ctx := context.Background()

	tracker.Start(ctx, alice, "general")
	time.Sleep(20 * time.Millisecond)

	tracker.Expire(ctx, 10*time.Millisecond)

	req.Empty(tracker.TypingIn("general"))
	// typing:start then the sweeper's typing:stop
	req.Equal(2, observer.count())
}

func TestTypingTracker_Expire_Keeps_Fresh_Entries(t *testing.T) {
	req := require.New(t)
	_, tracker, alice, _ := typingSetup(t)
	ctx := context.Background()

	tracker.Start(ctx, alice, "general")
	tracker.Expire(ctx, time.Minute)

	req.Equal([]string{"alice"}, tracker.TypingIn("general"))
}
