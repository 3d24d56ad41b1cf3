package service

import (
	"github.com/google/uuid"
	"github.com/upbartr/backend/internal/domain"
)

// Notifier fans persisted messages out to connected clients. Delivery
// is best-effort; the database row is the durable record.
type Notifier interface {
	// NotifyNewMessage emits receive_message to every connection in
	// the message's conversation room.
	NotifyNewMessage(msg *domain.Message)
	// NotifyUser emits new_notification to all of a user's
	// connections.
	NotifyUser(userID uuid.UUID, notification Notification)
}

// Notification is an out-of-band payload for a user's personal room.
type Notification struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
	From           string `json:"from,omitempty"`
}
