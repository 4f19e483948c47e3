package ws

import (
	"context"
	"log/slog"
	"time"

	"task-hub/domain"
	"task-hub/sink"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size allowed from peer.
	maxMessageSize = 8192
)

// client owns one live WebSocket. The read pump dispatches inbound
// events; the write pump drains the connection's sink. Either pump
// exiting tears the connection down.
type client struct {
	log      *slog.Logger
	handler  *Handler
	ws       *websocket.Conn
	conn     *domain.Connection
	outbound *sink.ChannelSink
	closed   chan struct{}
}

func newClient(log *slog.Logger, handler *Handler, ws *websocket.Conn,
	conn *domain.Connection, outbound *sink.ChannelSink) *client {
	return &client{
		log:      log,
		handler:  handler,
		ws:       ws,
		conn:     conn,
		outbound: outbound,
		closed:   make(chan struct{}),
	}
}

// readPump reads frames from the socket and dispatches them. It owns
// the disconnect path: when the socket closes, the connection is
// retracted from the registry together with all its room memberships.
func (c *client) readPump() {
	defer func() {
		c.handler.disconnect(c.conn)
		close(c.closed)
		_ = c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctx := context.Background()
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("unexpected close", "connection_id", c.conn.ID, "error", err)
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.sendError("invalid frame")
			continue
		}
		c.handler.dispatch(ctx, c, frame)
	}
}

// writePump drains the sink into the socket and keeps the connection
// alive with pings. One writer goroutine per connection: gorilla allows
// at most one concurrent writer.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case e := <-c.outbound.Events:
			payload, err := json.Marshal(e)
			if err != nil {
				c.log.Error("marshal failed", "event", e.Event, "error", err)
				continue
			}
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.log.Debug("write failed", "connection_id", c.conn.ID, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}
