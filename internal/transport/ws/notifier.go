package ws

import (
	"github.com/google/uuid"
	"github.com/upbartr/backend/internal/domain"
	"github.com/upbartr/backend/internal/service"
)

// HubNotifier implements service.Notifier using the WebSocket Hub.
type HubNotifier struct {
	hub *Hub
}

func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) NotifyNewMessage(msg *domain.Message) {
	select {
	case n.hub.messages <- msg:
	default:
		// Hub backlogged; delivery is best-effort.
	}
}

func (n *HubNotifier) NotifyUser(userID uuid.UUID, notification service.Notification) {
	select {
	case n.hub.notices <- notice{userID: userID, notification: notification}:
	default:
	}
}
