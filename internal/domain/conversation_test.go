package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCanonicalPair(t *testing.T) {
	a := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	b := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	x, y := CanonicalPair(a, b)
	assert.Equal(t, a, x)
	assert.Equal(t, b, y)

	// Reversed input yields the same ordering.
	x, y = CanonicalPair(b, a)
	assert.Equal(t, a, x)
	assert.Equal(t, b, y)
}

func TestNewConversationID(t *testing.T) {
	id := NewConversationID()
	assert.True(t, strings.HasPrefix(id, "conv_"))
	assert.Len(t, id, len("conv_")+16)
	assert.NotEqual(t, id, NewConversationID())
}

func TestMessageTypeValid(t *testing.T) {
	assert.True(t, MessageTypeChat.Valid())
	assert.True(t, MessageTypeSystem.Valid())
	assert.False(t, MessageType("chat").Valid())
	assert.False(t, MessageType("").Valid())
}

func TestMessageView_IsOwn(t *testing.T) {
	sender := uuid.New()
	receiver := uuid.New()
	msg := Message{SenderID: sender, ReceiverID: receiver, Content: "hi", Type: MessageTypeChat}

	assert.True(t, msg.View(sender).IsOwn)
	assert.False(t, msg.View(receiver).IsOwn)
}
