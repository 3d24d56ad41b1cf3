package ws

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/upbartr/backend/internal/domain"
	"github.com/upbartr/backend/internal/metrics"
	"github.com/upbartr/backend/internal/service"
)

// RoomAuthorizer checks that a user participates in a conversation
// before the hub joins their socket to its room.
type RoomAuthorizer interface {
	IsParticipant(ctx context.Context, userID uuid.UUID, conversationID string) (bool, error)
}

// Hub owns the session registry (user → open connections) and the
// room index (conversation → joined connections). Both are created on
// server start and torn down on shutdown; neither outlives the
// process, so a multi-instance deployment needs an external pub/sub
// in front of it.
type Hub struct {
	authorizer RoomAuthorizer

	sessions map[uuid.UUID]map[*Client]struct{}
	rooms    map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	joins      chan roomReq
	leaves     chan roomReq
	messages   chan *domain.Message
	notices    chan notice
	done       chan struct{}
}

type roomReq struct {
	client         *Client
	conversationID string
}

type notice struct {
	userID       uuid.UUID
	notification service.Notification
}

func NewHub(authorizer RoomAuthorizer) *Hub {
	return &Hub{
		authorizer: authorizer,
		sessions:   make(map[uuid.UUID]map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		joins:      make(chan roomReq),
		leaves:     make(chan roomReq),
		messages:   make(chan *domain.Message, 256),
		notices:    make(chan notice, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the Hub's main event loop. Call this in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addSession(client)

		case client := <-h.unregister:
			h.dropSession(client)

		case req := <-h.joins:
			h.joinRoom(req)

		case req := <-h.leaves:
			h.leaveRoom(req)

		case msg := <-h.messages:
			h.fanOutMessage(msg)

		case n := <-h.notices:
			h.fanOutNotification(n)

		case <-h.done:
			for _, clients := range h.sessions {
				for client := range clients {
					close(client.send)
					close(client.closed)
				}
			}
			h.sessions = make(map[uuid.UUID]map[*Client]struct{})
			h.rooms = make(map[string]map[*Client]struct{})
			return
		}
	}
}

// Close stops the event loop and drops every session.
func (h *Hub) Close() {
	close(h.done)
}

func (h *Hub) addSession(client *Client) {
	if h.sessions[client.userID] == nil {
		h.sessions[client.userID] = make(map[*Client]struct{})
	}
	h.sessions[client.userID][client] = struct{}{}
	metrics.WSConnections.Inc()
	log.Info().
		Str("user_id", client.userID.String()).
		Int("connections", len(h.sessions[client.userID])).
		Msg("ws: client connected")
}

func (h *Hub) dropSession(client *Client) {
	clients, ok := h.sessions[client.userID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	if len(clients) == 0 {
		// Last tab closed, user is no longer online.
		delete(h.sessions, client.userID)
	}
	for id, room := range h.rooms {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, id)
		}
	}
	close(client.send)
	close(client.closed)
	metrics.WSConnections.Dec()
	log.Info().
		Str("user_id", client.userID.String()).
		Msg("ws: client disconnected")
}

// isRegistered reports whether the client still holds a session. A
// slow consumer can be dropped while its events are queued; room
// requests arriving after the drop must not resurrect it.
func (h *Hub) isRegistered(client *Client) bool {
	_, ok := h.sessions[client.userID][client]
	return ok
}

func (h *Hub) joinRoom(req roomReq) {
	if !h.isRegistered(req.client) {
		return
	}
	if h.rooms[req.conversationID] == nil {
		h.rooms[req.conversationID] = make(map[*Client]struct{})
	}
	h.rooms[req.conversationID][req.client] = struct{}{}

	evt, err := NewEvent(EventTypeJoinedConversation, req.conversationID, nil)
	if err != nil {
		return
	}
	h.sendTo(req.client, evt)
}

func (h *Hub) leaveRoom(req roomReq) {
	if !h.isRegistered(req.client) {
		return
	}
	room, ok := h.rooms[req.conversationID]
	if !ok {
		return
	}
	delete(room, req.client)
	if len(room) == 0 {
		delete(h.rooms, req.conversationID)
	}

	evt, err := NewEvent(EventTypeLeftConversation, req.conversationID, nil)
	if err != nil {
		return
	}
	h.sendTo(req.client, evt)
}

// fanOutMessage renders the message per recipient so is_own reflects
// each viewer, then delivers to the conversation room. If nobody is
// joined the event is dropped; the persisted row is the source of
// truth.
func (h *Hub) fanOutMessage(msg *domain.Message) {
	room, ok := h.rooms[msg.ConversationID]
	if !ok {
		return
	}
	for client := range room {
		evt, err := NewEvent(EventTypeReceiveMessage, msg.ConversationID, msg.View(client.userID))
		if err != nil {
			log.Error().Err(err).Msg("ws: marshal receive_message")
			continue
		}
		h.sendTo(client, evt)
	}
}

func (h *Hub) fanOutNotification(n notice) {
	clients, ok := h.sessions[n.userID]
	if !ok {
		return
	}
	evt, err := NewEvent(EventTypeNewNotification, "", n.notification)
	if err != nil {
		log.Error().Err(err).Msg("ws: marshal new_notification")
		return
	}
	for client := range clients {
		h.sendTo(client, evt)
	}
}

func (h *Hub) sendTo(client *Client, evt *Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	select {
	case client.send <- data:
	default:
		// Slow consumer, drop it.
		h.dropSession(client)
	}
}
