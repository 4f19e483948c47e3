// Package httpapi exposes the pull-based notification path: the CRUD
// layer posts notifications here, clients list and read-flag them. Read
// state changes are store-only and never produce a live push.
package httpapi

import (
	stderrs "errors"
	"log/slog"
	"net/http"

	"task-hub/auth"
	"task-hub/domain"
	"task-hub/domain/event"
	"task-hub/errors"
	"task-hub/services"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type NotificationHandler struct {
	log     *slog.Logger
	gate    *auth.Gate
	service services.INotificationService
}

func NewNotificationHandler(log *slog.Logger, gate *auth.Gate, service services.INotificationService) *NotificationHandler {
	return &NotificationHandler{log: log, gate: gate, service: service}
}

// Register mounts the notification routes on the mux.
func (h *NotificationHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /notifications", h.withIdentity(h.list))
	mux.HandleFunc("POST /notifications", h.withIdentity(h.create))
	mux.HandleFunc("PATCH /notifications/read-all", h.withIdentity(h.markAllRead))
	mux.HandleFunc("PATCH /notifications/{id}/read", h.withIdentity(h.markRead))
	mux.HandleFunc("DELETE /notifications/{id}", h.withIdentity(h.delete))
}

func (h *NotificationHandler) withIdentity(next func(w http.ResponseWriter, r *http.Request, identity domain.Identity)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := h.gate.VerifyRequest(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "authentication error"})
			return
		}
		next(w, r, identity)
	}
}

func (h *NotificationHandler) list(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	notifications, err := h.service.List(r.Context(), identity.UserID, 0)
	if err != nil {
		h.log.Error("list notifications failed", "user_id", identity.UserID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Error fetching notifications"})
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(notifications, func(n domain.Notification, _ int) event.Notification {
		return event.FromNotification(n)
	}))
}

type createNotificationIn struct {
	UserID        string  `json:"userId"`
	Type          string  `json:"type"`
	Message       string  `json:"message"`
	RelatedTaskID *string `json:"relatedTaskId"`
}

// create is the external mutation path: REST task handlers call it after
// persisting a task change. The live push inside Notify is best-effort;
// the response carries the persisted record either way.
func (h *NotificationHandler) create(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	var in createNotificationIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
		return
	}
	notification, err := h.service.Notify(r.Context(), services.NotifyCommand{
		UserID:        in.UserID,
		Type:          domain.NotificationType(in.Type),
		Message:       in.Message,
		RelatedTaskID: in.RelatedTaskID,
	})
	if err != nil {
		if stderrs.Is(err, errors.ErrUnknownNotifType) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		}
		h.log.Error("create notification failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Error creating notification"})
		return
	}
	writeJSON(w, http.StatusCreated, event.FromNotification(notification))
}

func (h *NotificationHandler) markRead(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid notification id"})
		return
	}
	notification, err := h.service.MarkRead(r.Context(), identity.UserID, id)
	if err != nil {
		if stderrs.Is(err, errors.ErrNotificationNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Notification not found"})
			return
		}
		h.log.Error("mark read failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Error updating notification"})
		return
	}
	writeJSON(w, http.StatusOK, event.FromNotification(notification))
}

func (h *NotificationHandler) markAllRead(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	if _, err := h.service.MarkAllRead(r.Context(), identity.UserID); err != nil {
		h.log.Error("mark all read failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Error updating notifications"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "All notifications marked as read"})
}

func (h *NotificationHandler) delete(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid notification id"})
		return
	}
	if err := h.service.Delete(r.Context(), identity.UserID, id); err != nil {
		if stderrs.Is(err, errors.ErrNotificationNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Notification not found"})
			return
		}
		h.log.Error("delete notification failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Error deleting notification"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Notification deleted"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
