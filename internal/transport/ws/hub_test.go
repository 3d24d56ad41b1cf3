package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upbartr/backend/internal/domain"
)

// recvEvent reads one event straight off a client's send channel;
// these tests drive the hub loop directly without running pumps.
func recvEvent(t *testing.T, ch chan []byte) Event {
	t.Helper()
	select {
	case data, ok := <-ch:
		require.True(t, ok, "send channel closed while expecting an event")
		var evt Event
		require.NoError(t, json.Unmarshal(data, &evt))
		return evt
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestDroppedClientJoinDoesNotResurrect(t *testing.T) {
	hub := NewHub(allowAll{})
	go hub.Run()
	defer hub.Close()

	convID := "conv_dropped"
	dead := NewClient(hub, nil, uuid.New())
	hub.register <- dead

	// Fill the send buffer so the next hub write hits the
	// slow-consumer path and drops the session.
	for i := 0; i < sendBufSize; i++ {
		dead.send <- []byte("backlog")
	}
	hub.joins <- roomReq{client: dead, conversationID: convID}

	// The join confirmation could not be buffered, so the client was
	// dropped. A join still in flight from its ReadPump must be
	// ignored, not re-added with a closed send channel.
	hub.joins <- roomReq{client: dead, conversationID: convID}

	live := NewClient(hub, nil, uuid.New())
	hub.register <- live
	hub.joins <- roomReq{client: live, conversationID: convID}
	evt := recvEvent(t, live.send)
	require.Equal(t, EventTypeJoinedConversation, evt.Type)

	// Fan-out reaches the live member; if the dead client had been
	// resurrected this would panic the hub loop on its closed channel.
	hub.messages <- &domain.Message{
		ID:             uuid.New(),
		ConversationID: convID,
		SenderID:       live.userID,
		ReceiverID:     dead.userID,
		Content:        "still here",
		Type:           domain.MessageTypeChat,
		CreatedAt:      time.Now(),
	}
	evt = recvEvent(t, live.send)
	assert.Equal(t, EventTypeReceiveMessage, evt.Type)
	assert.Contains(t, string(evt.Payload), `"content":"still here"`)
}

func TestDroppedClientLeaveIgnored(t *testing.T) {
	hub := NewHub(allowAll{})
	go hub.Run()
	defer hub.Close()

	convID := "conv_leave"
	dead := NewClient(hub, nil, uuid.New())
	hub.register <- dead
	for i := 0; i < sendBufSize; i++ {
		dead.send <- []byte("backlog")
	}
	hub.joins <- roomReq{client: dead, conversationID: convID}

	// Dropped by the blocked confirmation above; a trailing leave
	// must not write to the closed channel either.
	hub.leaves <- roomReq{client: dead, conversationID: convID}

	live := NewClient(hub, nil, uuid.New())
	hub.register <- live
	hub.joins <- roomReq{client: live, conversationID: convID}
	evt := recvEvent(t, live.send)
	assert.Equal(t, EventTypeJoinedConversation, evt.Type)
}

func TestDetachDoesNotBlockAfterHubClose(t *testing.T) {
	hub := NewHub(allowAll{})
	go hub.Run()

	client := NewClient(hub, nil, uuid.New())
	hub.register <- client
	hub.Close()

	detached := make(chan struct{})
	go func() {
		client.detach()
		close(detached)
	}()

	select {
	case <-detached:
	case <-time.After(5 * time.Second):
		t.Fatal("detach blocked after hub shutdown")
	}
}
