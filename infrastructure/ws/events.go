package ws

import (
	"context"
	stderrors "errors"

	"task-hub/domain"
	"task-hub/domain/event"
	"task-hub/errors"

	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
)

type inboundFrame struct {
	Event string              `json:"event"`
	Data  jsoniter.RawMessage `json:"data"`
}

type chatMessageIn struct {
	Content string `json:"content"`
	Room    string `json:"room"`
}

type historyIn struct {
	Room  string `json:"room"`
	Limit int    `json:"limit"`
}

type roomIn struct {
	Room string `json:"room"`
}

// dispatch routes one inbound frame. All errors stay local to the
// originating connection; nothing here ever mutates registry state on
// failure.
func (h *Handler) dispatch(ctx context.Context, c *client, frame inboundFrame) {
	switch frame.Event {
	case event.ChatMessage:
		h.onChatMessage(ctx, c, frame.Data)
	case event.ChatHistory:
		h.onChatHistory(ctx, c, frame.Data)
	case event.RoomJoin:
		h.onRoomJoin(ctx, c, frame.Data)
	case event.RoomLeave:
		h.onRoomLeave(ctx, c, frame.Data)
	case event.TypingStart:
		h.typing.Start(ctx, c.conn, roomOrDefault(frame.Data))
	case event.TypingStop:
		h.typing.Stop(ctx, c.conn, roomOrDefault(frame.Data))
	case event.TaskCreated, event.TaskUpdated, event.TaskDeleted:
		h.onTaskEvent(ctx, c, frame)
	default:
		h.log.Debug("unknown event", "event", frame.Event, "connection_id", c.conn.ID)
		c.sendError("unknown event type")
	}
}

func (h *Handler) onChatMessage(ctx context.Context, c *client, data jsoniter.RawMessage) {
	var in chatMessageIn
	if err := json.Unmarshal(data, &in); err != nil {
		c.sendError("invalid chat payload")
		return
	}
	_, err := h.chatService.PostMessage(ctx, c.conn, in.Room, in.Content)
	switch {
	case err == nil:
	case stderrors.Is(err, errors.ErrEmptyContent), stderrors.Is(err, errors.ErrContentTooLong):
		c.sendError(err.Error())
	default:
		h.log.Error("post message failed", "connection_id", c.conn.ID, "error", err)
		c.sendError("Failed to send message")
	}
}

func (h *Handler) onChatHistory(ctx context.Context, c *client, data jsoniter.RawMessage) {
	var in historyIn
	if len(data) > 0 {
		if err := json.Unmarshal(data, &in); err != nil {
			c.sendError("invalid history payload")
			return
		}
	}
	messages, err := h.chatService.GetHistory(ctx, in.Room, in.Limit)
	if err != nil {
		h.log.Error("history fetch failed", "connection_id", c.conn.ID, "error", err)
		c.sendError("Failed to fetch chat history")
		return
	}
	// History goes only to the requester, never broadcast.
	c.send(ctx, event.Envelope{
		Event: event.ChatHistory,
		Data:  lo.Map(messages, func(m domain.ChatMessage, _ int) event.Message { return event.FromChatMessage(m) }),
	})
}

func (h *Handler) onRoomJoin(ctx context.Context, c *client, data jsoniter.RawMessage) {
	var in roomIn
	if err := json.Unmarshal(data, &in); err != nil || in.Room == "" {
		c.sendError("room is required")
		return
	}
	h.registry.Join(c.conn.ID, in.Room)
	h.log.Info("room joined", "username", c.conn.Identity.Username, "room", in.Room)
	c.send(ctx, event.Envelope{Event: event.RoomJoined, Data: event.RoomAck{Room: in.Room}})
}

func (h *Handler) onRoomLeave(ctx context.Context, c *client, data jsoniter.RawMessage) {
	var in roomIn
	if err := json.Unmarshal(data, &in); err != nil || in.Room == "" {
		c.sendError("room is required")
		return
	}
	h.registry.Leave(c.conn.ID, in.Room)
	h.log.Info("room left", "username", c.conn.Identity.Username, "room", in.Room)
	c.send(ctx, event.Envelope{Event: event.RoomLeft, Data: event.RoomAck{Room: in.Room}})
}

// onTaskEvent rebroadcasts a task mutation to every other connection,
// stamped with the acting username. The task itself was already
// persisted by the CRUD layer before the client signaled it here.
func (h *Handler) onTaskEvent(ctx context.Context, c *client, frame inboundFrame) {
	var task event.Task
	if len(frame.Data) > 0 {
		if err := json.Unmarshal(frame.Data, &task); err != nil {
			c.sendError("invalid task payload")
			return
		}
	}
	task.Username = c.conn.Identity.Username
	h.broadcaster.ToAll(ctx, event.Envelope{Event: frame.Event, Data: task}, c.conn.ID)
}

func roomOrDefault(data jsoniter.RawMessage) string {
	var in roomIn
	if len(data) > 0 {
		_ = json.Unmarshal(data, &in)
	}
	if in.Room == "" {
		return domain.DefaultRoom
	}
	return in.Room
}

func (c *client) send(ctx context.Context, e event.Envelope) {
	if err := c.outbound.Consume(ctx, e); err != nil {
		c.log.Debug("reply dropped", "connection_id", c.conn.ID, "event", e.Event, "error", err)
	}
}

func (c *client) sendError(message string) {
	c.send(context.Background(), event.Envelope{
		Event: event.Error,
		Data:  event.Failure{Message: message},
	})
}
