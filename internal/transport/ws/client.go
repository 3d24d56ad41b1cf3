package ws

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/upbartr/backend/internal/metrics"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	authTimeout  = 5 * time.Second
	sendBufSize  = 256
)

// Client represents a single WebSocket connection. One user may hold
// several at once (one per tab); the hub tracks the whole set.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID uuid.UUID

	send   chan []byte
	closed chan struct{}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBufSize),
		closed: make(chan struct{}),
	}
}

// detach hands the connection back to the hub for cleanup, or gives
// up immediately if the hub has already shut down and nothing drains
// the unregister channel anymore.
func (c *Client) detach() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.done:
	}
}

// ReadPump reads events from the WebSocket and routes them to the Hub.
func (c *Client) ReadPump() {
	defer func() {
		c.detach()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		var event Event
		err := wsjson.Read(context.Background(), c.conn, &event)
		if err != nil {
			if websocket.CloseStatus(err) == -1 {
				log.Debug().Err(err).Str("user_id", c.userID.String()).Msg("ws: read error")
			}
			return
		}

		c.handleEvent(&event)
	}
}

// WritePump writes events from the send channel to the WebSocket.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}

		case <-c.closed:
			return
		}
	}
}

// handleEvent routes an incoming client event. Join requests are
// authorized against conversation membership before the hub ever sees
// them; the check runs here so the hub loop never blocks on the
// database.
func (c *Client) handleEvent(event *Event) {
	switch event.Type {
	case EventTypeJoinConversation, EventTypeLeaveConversation, EventTypePing:
		metrics.WSEvents.WithLabelValues(event.Type).Inc()
	default:
		// Client-supplied types are not trusted as label values.
		metrics.WSEvents.WithLabelValues("unknown").Inc()
	}

	switch event.Type {
	case EventTypeJoinConversation:
		convID := strings.TrimSpace(event.ConversationID)
		if convID == "" {
			log.Warn().Str("user_id", c.userID.String()).Msg("ws: join with empty conversation id ignored")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
		ok, err := c.hub.authorizer.IsParticipant(ctx, c.userID, convID)
		cancel()
		if err != nil {
			log.Error().Err(err).Str("conversation_id", convID).Msg("ws: join authorization failed")
			c.sendError("INTERNAL", "could not join conversation")
			return
		}
		if !ok {
			c.sendError("FORBIDDEN", "you are not a participant of this conversation")
			return
		}
		c.hub.joins <- roomReq{client: c, conversationID: convID}

	case EventTypeLeaveConversation:
		convID := strings.TrimSpace(event.ConversationID)
		if convID == "" {
			log.Warn().Str("user_id", c.userID.String()).Msg("ws: leave with empty conversation id ignored")
			return
		}
		c.hub.leaves <- roomReq{client: c, conversationID: convID}

	case EventTypePing:
		c.sendPong()

	default:
		c.sendError("UNKNOWN_EVENT", "unknown event type: "+event.Type)
	}
}

func (c *Client) sendPong() {
	data, _ := json.Marshal(Event{Type: EventTypePong, Timestamp: time.Now().Unix()})
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) sendError(code, message string) {
	evt, err := NewEvent(EventTypeError, "", ErrorPayload{Code: code, Message: message})
	if err != nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
