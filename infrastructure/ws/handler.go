// Package ws is the WebSocket transport of the real-time layer. It
// authenticates handshakes, admits connections into the registry, and
// dispatches the live event vocabulary to the services behind it.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"task-hub/auth"
	"task-hub/contract"
	"task-hub/domain"
	"task-hub/domain/event"
	"task-hub/realtime"
	"task-hub/services"
	"task-hub/sink"

	"github.com/gorilla/websocket"
)

type Handler struct {
	log                 *slog.Logger
	upgrader            websocket.Upgrader
	gate                *auth.Gate
	registry            *realtime.Registry
	broadcaster         contract.Broadcaster
	typing              *realtime.TypingTracker
	chatService         services.IChatService
	notificationService services.INotificationService
	sendBufferSize      int
}

func NewHandler(log *slog.Logger, gate *auth.Gate, registry *realtime.Registry,
	broadcaster contract.Broadcaster, typing *realtime.TypingTracker,
	chatService services.IChatService, notificationService services.INotificationService,
	sendBufferSize int) *Handler {
	return &Handler{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin filtering is the reverse proxy's concern.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		gate:                gate,
		registry:            registry,
		broadcaster:         broadcaster,
		typing:              typing,
		chatService:         chatService,
		notificationService: notificationService,
		sendBufferSize:      sendBufferSize,
	}
}

// ServeHTTP authenticates the handshake, then upgrades. A connection
// that fails verification never enters the registry: the handshake is
// refused with 401 before the upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := h.gate.VerifyRequest(r)
	if err != nil {
		h.log.Warn("handshake rejected", "error", err, "remote", r.RemoteAddr)
		http.Error(w, "authentication error", http.StatusUnauthorized)
		return
	}

	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("upgrade failed", "error", err)
		return
	}

	outbound := sink.NewChannelSink(h.sendBufferSize)
	conn := h.registry.Admit(identity, outbound)
	h.registry.Join(conn.ID, domain.DefaultRoom)
	h.log.Info("user connected", "username", identity.Username, "connection_id", conn.ID)

	ctx := r.Context()
	h.broadcaster.ToAll(ctx, event.Envelope{
		Event: event.UserJoined,
		Data:  event.Presence{Username: identity.Username, Timestamp: time.Now().UTC()},
	}, conn.ID)

	client := newClient(h.log, h, wsConn, conn, outbound)
	go client.writePump()
	go client.readPump()
}

// disconnect retracts the connection and announces the departure. It is
// idempotent because Retract is: the read and write pumps may both end
// up here.
func (h *Handler) disconnect(conn *domain.Connection) {
	h.registry.Retract(conn.ID)
	h.log.Info("user disconnected", "username", conn.Identity.Username, "connection_id", conn.ID)
	h.broadcaster.ToAll(context.Background(), event.Envelope{
		Event: event.UserLeft,
		Data:  event.Presence{Username: conn.Identity.Username, Timestamp: time.Now().UTC()},
	}, conn.ID)
}
