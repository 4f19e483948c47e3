// Package realtime holds the live connection state of the server:
// who is connected, which rooms they are in, and who is typing.
// It orchestrates delivery without containing persistence or domain rules.
package realtime

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"task-hub/contract"
	"task-hub/domain"
)

type Set map[domain.ConnectionID]struct{}

type session struct {
	conn *domain.Connection
	sink contract.EventSink
}

// Registry is the single source of truth for live connections and room
// membership. One mutex guards both maps so that retracting a connection
// removes its room memberships atomically.
type Registry struct {
	mu          sync.RWMutex
	log         *slog.Logger
	sessions    map[domain.ConnectionID]*session // every live connection
	byUser      map[string]domain.ConnectionID   // userID -> authoritative connection
	roomMembers map[string]Set                   // room name -> members
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:         log,
		sessions:    make(map[domain.ConnectionID]*session),
		byUser:      make(map[string]domain.ConnectionID),
		roomMembers: make(map[string]Set),
	}
}

// Admit creates a Connection for the identity and records its sink.
// Last-connect-wins: if the same userID is already registered, the new
// connection becomes the authoritative one. The superseded connection is
// not retracted here and keeps its room memberships until its own
// transport closes (multi-device use is unsupported).
func (r *Registry) Admit(identity domain.Identity, sink contract.EventSink) *domain.Connection {
	conn := &domain.Connection{
		ID:            domain.NewConnectionID(),
		Identity:      identity,
		EstablishedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byUser[identity.UserID]; ok {
		r.log.Warn("user reconnected, superseding previous connection",
			"user_id", identity.UserID, "previous", prev)
	}
	r.sessions[conn.ID] = &session{conn: conn, sink: sink}
	r.byUser[identity.UserID] = conn.ID
	return conn
}

// Retract removes a connection and all its room memberships. It is a
// no-op if the connection was already retracted. The userID mapping is
// only dropped when it still points at this connection, so retracting a
// superseded connection never unregisters its successor.
func (r *Registry) Retract(id domain.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if !ok {
		return
	}
	delete(r.sessions, id)
	if current, ok := r.byUser[sess.conn.Identity.UserID]; ok && current == id {
		delete(r.byUser, sess.conn.Identity.UserID)
	}
	for room, members := range r.roomMembers {
		delete(members, id)
		if len(members) == 0 {
			delete(r.roomMembers, room)
		}
	}
}

// Lookup resolves a userID to its authoritative live connection.
func (r *Registry) Lookup(userID string) (*domain.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUser[userID]
	if !ok {
		return nil, false
	}
	sess, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	return sess.conn, true
}

func (r *Registry) SinkOf(id domain.ConnectionID) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	return sess.sink, true
}

// Join adds the connection to a room, creating the room on the fly.
// Idempotent if already a member. Unknown connections are ignored so a
// join racing a disconnect cannot resurrect membership.
func (r *Registry) Join(id domain.ConnectionID, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		r.log.Debug(fmt.Sprintf("Join ignored for unknown connection %s", id))
		return
	}
	if _, ok := r.roomMembers[room]; !ok {
		r.roomMembers[room] = make(Set)
	}
	r.roomMembers[room][id] = struct{}{}
}

// Leave removes the connection from a room. It cleans up empty rooms
// to prevent the room map growing without bound over time.
func (r *Registry) Leave(id domain.ConnectionID, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if members, ok := r.roomMembers[room]; ok {
		delete(members, id)
		if len(members) == 0 {
			delete(r.roomMembers, room)
		}
	}
}

// MembersOf returns a snapshot of the room's membership.
func (r *Registry) MembersOf(room string) []domain.ConnectionID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[room]
	if !ok {
		return nil
	}
	ids := make([]domain.ConnectionID, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	return ids
}

// SinksForRoom retrieves all active sinks for a specific room.
// It performs a two-step lookup:
// 1. Identifies connection IDs associated with the room via roomMembers.
// 2. Resolves those IDs into actual EventSinks using the sessions map.
//
// This decoupled approach ensures that even if a connection is in
// multiple rooms, its sink is managed in a single place.
// Returns nil if the room doesn't exist or has no members.
func (r *Registry) SinksForRoom(room string, exclude ...domain.ConnectionID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[room]
	if !ok {
		return nil
	}
	var activeSinks []contract.EventSink
	for id := range members {
		if excluded(id, exclude) {
			continue
		}
		if sess, exists := r.sessions[id]; exists {
			activeSinks = append(activeSinks, sess.sink)
		}
	}
	return activeSinks
}

// AllSinks returns the sinks of every registered connection.
func (r *Registry) AllSinks(exclude ...domain.ConnectionID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var activeSinks []contract.EventSink
	for id, sess := range r.sessions {
		if excluded(id, exclude) {
			continue
		}
		activeSinks = append(activeSinks, sess.sink)
	}
	return activeSinks
}

func excluded(id domain.ConnectionID, exclude []domain.ConnectionID) bool {
	for _, e := range exclude {
		if e == id {
			return true
		}
	}
	return false
}
