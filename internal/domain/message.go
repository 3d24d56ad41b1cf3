package domain

import (
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessageTypeChat   MessageType = "CHAT"
	MessageTypeSystem MessageType = "SYSTEM"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeChat, MessageTypeSystem:
		return true
	}
	return false
}

type Message struct {
	ID             uuid.UUID   `json:"id"`
	ConversationID string      `json:"conversation_id"`
	SenderID       uuid.UUID   `json:"sender_id"`
	ReceiverID     uuid.UUID   `json:"receiver_id"`
	Content        string      `json:"content"`
	Type           MessageType `json:"type"`
	Read           bool        `json:"read"`
	CreatedAt      time.Time   `json:"created_at"`
}

// MessageView is the wire shape shared by HTTP responses and the
// receive_message socket event. IsOwn is relative to the viewer, so
// the same message renders differently per recipient.
type MessageView struct {
	ID             uuid.UUID   `json:"id"`
	ConversationID string      `json:"conversation_id"`
	SenderID       uuid.UUID   `json:"sender_id"`
	ReceiverID     uuid.UUID   `json:"receiver_id"`
	Content        string      `json:"content"`
	Type           MessageType `json:"type"`
	Read           bool        `json:"read"`
	IsOwn          bool        `json:"is_own"`
	CreatedAt      time.Time   `json:"created_at"`
}

func (m *Message) View(viewerID uuid.UUID) MessageView {
	return MessageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		Content:        m.Content,
		Type:           m.Type,
		Read:           m.Read,
		IsOwn:          m.SenderID == viewerID,
		CreatedAt:      m.CreatedAt,
	}
}
