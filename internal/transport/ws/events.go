package ws

import (
	"encoding/json"
	"time"
)

// Event types - Client → Server
const (
	EventTypeJoinConversation  = "join_conversation"
	EventTypeLeaveConversation = "leave_conversation"
	EventTypePing              = "ping"
)

// Event types - Server → Client
const (
	EventTypeJoinedConversation = "joined_conversation"
	EventTypeLeftConversation   = "left_conversation"
	EventTypeReceiveMessage     = "receive_message"
	EventTypeNewNotification    = "new_notification"
	EventTypePong               = "pong"
	EventTypeError              = "error"
)

// Event is the envelope for all WebSocket traffic. Room joins and
// leaves carry the conversation id in the envelope itself.
type Event struct {
	Type           string          `json:"type"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	Timestamp      int64           `json:"ts,omitempty"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent creates a server→client event with the current timestamp.
func NewEvent(eventType, conversationID string, payload any) (*Event, error) {
	evt := &Event{
		Type:           eventType,
		ConversationID: conversationID,
		Timestamp:      time.Now().Unix(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		evt.Payload = data
	}
	return evt, nil
}
