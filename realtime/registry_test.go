package realtime

import (
	"context"
	"log/slog"
	"testing"

	"task-hub/domain"
	"task-hub/domain/event"

	"github.com/stretchr/testify/require"
)

type stubSink struct{}

func (s stubSink) Consume(ctx context.Context, e event.Envelope) error {
	return nil
}

func identityFor(userID, username string) domain.Identity {
	return domain.Identity{UserID: userID, Username: username, Role: "user"}
}

func TestRegistry_Admit_Then_Retract_Leaves_Nothing(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())

	// Given an admitted connection joined to two rooms
	conn := registry.Admit(identityFor("u1", "alice"), stubSink{})
	registry.Join(conn.ID, "general")
	registry.Join(conn.ID, "standup")

	// When the connection is retracted
	registry.Retract(conn.ID)

	// Then the user is unreachable and every room is empty of it
	_, ok := registry.Lookup("u1")
	req.False(ok)
	req.Empty(registry.MembersOf("general"))
	req.Empty(registry.MembersOf("standup"))
}

func TestRegistry_Retract_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	conn := registry.Admit(identityFor("u1", "alice"), stubSink{})

	registry.Retract(conn.ID)
	registry.Retract(conn.ID)

	_, ok := registry.Lookup("u1")
	req.False(ok)
}

func TestRegistry_Last_Connect_Wins(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())

	// Given two connections admitted sequentially for the same userID
	first := registry.Admit(identityFor("u1", "alice"), stubSink{})
	second := registry.Admit(identityFor("u1", "alice"), stubSink{})

	// Then lookup resolves only to the second connection
	conn, ok := registry.Lookup("u1")
	req.True(ok)
	req.Equal(second.ID, conn.ID)
	req.NotEqual(first.ID, conn.ID)
}

func TestRegistry_Retracting_Superseded_Connection_Keeps_Successor(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())

	first := registry.Admit(identityFor("u1", "alice"), stubSink{})
	second := registry.Admit(identityFor("u1", "alice"), stubSink{})

	// When the stale connection finally closes
	registry.Retract(first.ID)

	// Then the successor stays registered
	conn, ok := registry.Lookup("u1")
	req.True(ok)
	req.Equal(second.ID, conn.ID)
}

func TestRegistry_Join_Is_Idempotent_And_Lazy(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	conn := registry.Admit(identityFor("u1", "alice"), stubSink{})

	registry.Join(conn.ID, "standup")
	registry.Join(conn.ID, "standup")

	req.Len(registry.MembersOf("standup"), 1)
}

func TestRegistry_Join_Unknown_Connection_Is_Ignored(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())

	registry.Join(domain.NewConnectionID(), "standup")

	req.Empty(registry.MembersOf("standup"))
}

func TestRegistry_Leave_Discards_Empty_Room(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	conn := registry.Admit(identityFor("u1", "alice"), stubSink{})
	registry.Join(conn.ID, "standup")

	registry.Leave(conn.ID, "standup")

	req.Empty(registry.MembersOf("standup"))
	req.Nil(registry.SinksForRoom("standup"))
}

func TestRegistry_SinksForRoom_Excludes_Connections(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(slog.Default())
	alice := registry.Admit(identityFor("u1", "alice"), stubSink{})
	bob := registry.Admit(identityFor("u2", "bob"), stubSink{})
	registry.Join(alice.ID, "general")
	registry.Join(bob.ID, "general")

	req.Len(registry.SinksForRoom("general"), 2)
	req.Len(registry.SinksForRoom("general", alice.ID), 1)
}
