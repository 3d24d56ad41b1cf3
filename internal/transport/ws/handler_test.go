package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upbartr/backend/internal/domain"
	"github.com/upbartr/backend/internal/service"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const testSecret = "ws-test-secret"

// allowAll authorizes every join; per-test authorizers below restrict.
type allowAll struct{}

func (allowAll) IsParticipant(context.Context, uuid.UUID, string) (bool, error) {
	return true, nil
}

type memberList map[uuid.UUID]string

func (m memberList) IsParticipant(_ context.Context, userID uuid.UUID, conversationID string) (bool, error) {
	return m[userID] == conversationID, nil
}

func signToken(t *testing.T, userID uuid.UUID, expiresIn time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(expiresIn).Unix(),
		"iat": time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func newWSServer(t *testing.T, authorizer RoomAuthorizer) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(authorizer)
	go hub.Run()
	t.Cleanup(hub.Close)

	srv := httptest.NewServer(ServeWS(hub, testSecret))
	t.Cleanup(srv.Close)
	return hub, srv
}

func wsURL(srv *httptest.Server, token string) string {
	url := strings.Replace(srv.URL, "http", "ws", 1)
	if token != "" {
		url += "?token=" + token
	}
	return url
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, wsURL(srv, token), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var evt Event
	require.NoError(t, wsjson.Read(ctx, conn, &evt))
	return evt
}

func TestHandshake_RejectsBadTokens(t *testing.T) {
	_, srv := newWSServer(t, allowAll{})

	cases := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"malformed", "not-a-jwt"},
		{"expired", signToken(t, uuid.New(), -time.Hour)},
		{"wrong signature", func() string {
			tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
				"sub": uuid.New().String(),
				"exp": time.Now().Add(time.Hour).Unix(),
			}).SignedString([]byte("other-secret"))
			return tok
		}()},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			conn, resp, err := websocket.Dial(ctx, wsURL(srv, tc.token), nil)
			require.Error(t, err, "connection must never be established")
			if conn != nil {
				conn.Close(websocket.StatusNormalClosure, "")
			}
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestJoinLeaveConversation(t *testing.T) {
	userID := uuid.New()
	_, srv := newWSServer(t, memberList{userID: "conv_abc123"})

	conn := dial(t, srv, signToken(t, userID, time.Hour))

	ctx := context.Background()
	require.NoError(t, wsjson.Write(ctx, conn, Event{Type: EventTypeJoinConversation, ConversationID: "conv_abc123"}))

	evt := readEvent(t, conn)
	assert.Equal(t, EventTypeJoinedConversation, evt.Type)
	assert.Equal(t, "conv_abc123", evt.ConversationID)

	require.NoError(t, wsjson.Write(ctx, conn, Event{Type: EventTypeLeaveConversation, ConversationID: "conv_abc123"}))
	evt = readEvent(t, conn)
	assert.Equal(t, EventTypeLeftConversation, evt.Type)
}

func TestJoin_UnauthorizedRoom(t *testing.T) {
	userID := uuid.New()
	_, srv := newWSServer(t, memberList{userID: "conv_mine"})

	conn := dial(t, srv, signToken(t, userID, time.Hour))

	ctx := context.Background()
	require.NoError(t, wsjson.Write(ctx, conn, Event{Type: EventTypeJoinConversation, ConversationID: "conv_not_mine"}))

	evt := readEvent(t, conn)
	require.Equal(t, EventTypeError, evt.Type, "join outside own conversations must not be confirmed")
	assert.Contains(t, string(evt.Payload), "FORBIDDEN")
}

func TestReceiveMessage_FanOutPerRecipient(t *testing.T) {
	sender := uuid.New()
	receiver := uuid.New()
	convID := "conv_fanout1"
	hub, srv := newWSServer(t, allowAll{})

	senderConn := dial(t, srv, signToken(t, sender, time.Hour))
	receiverConn := dial(t, srv, signToken(t, receiver, time.Hour))

	ctx := context.Background()
	for _, conn := range []*websocket.Conn{senderConn, receiverConn} {
		require.NoError(t, wsjson.Write(ctx, conn, Event{Type: EventTypeJoinConversation, ConversationID: convID}))
		evt := readEvent(t, conn)
		require.Equal(t, EventTypeJoinedConversation, evt.Type)
	}

	msg := &domain.Message{
		ID:             uuid.New(),
		ConversationID: convID,
		SenderID:       sender,
		ReceiverID:     receiver,
		Content:        "hello",
		Type:           domain.MessageTypeChat,
		CreatedAt:      time.Now(),
	}
	NewHubNotifier(hub).NotifyNewMessage(msg)

	// Both the sender's other tab and the receiver get the event;
	// is_own is rendered per recipient.
	senderEvt := readEvent(t, senderConn)
	require.Equal(t, EventTypeReceiveMessage, senderEvt.Type)
	assert.Contains(t, string(senderEvt.Payload), `"is_own":true`)
	assert.Contains(t, string(senderEvt.Payload), `"content":"hello"`)

	receiverEvt := readEvent(t, receiverConn)
	require.Equal(t, EventTypeReceiveMessage, receiverEvt.Type)
	assert.Contains(t, string(receiverEvt.Payload), `"is_own":false`)
	assert.Contains(t, string(receiverEvt.Payload), `"content":"hello"`)
}

func TestNewNotification_ReachesAllUserConnections(t *testing.T) {
	userID := uuid.New()
	hub, srv := newWSServer(t, allowAll{})

	// Two tabs for the same user.
	tab1 := dial(t, srv, signToken(t, userID, time.Hour))
	tab2 := dial(t, srv, signToken(t, userID, time.Hour))

	// Both registrations must be processed before notifying; pings
	// round-trip through the client goroutines after registration.
	ctx := context.Background()
	for _, conn := range []*websocket.Conn{tab1, tab2} {
		require.NoError(t, wsjson.Write(ctx, conn, Event{Type: EventTypePing}))
		evt := readEvent(t, conn)
		require.Equal(t, EventTypePong, evt.Type)
	}

	notifier := NewHubNotifier(hub)
	notifier.NotifyUser(userID, service.Notification{Type: "new_message", ConversationID: "conv_n1"})

	for _, conn := range []*websocket.Conn{tab1, tab2} {
		evt := readEvent(t, conn)
		assert.Equal(t, EventTypeNewNotification, evt.Type)
		assert.Contains(t, string(evt.Payload), `"type":"new_message"`)
	}
}

func TestEmptyRoomIDIgnored(t *testing.T) {
	userID := uuid.New()
	_, srv := newWSServer(t, allowAll{})

	conn := dial(t, srv, signToken(t, userID, time.Hour))

	ctx := context.Background()
	require.NoError(t, wsjson.Write(ctx, conn, Event{Type: EventTypeJoinConversation, ConversationID: "   "}))

	// No error, no confirmation: the next pong proves the bad join
	// produced nothing.
	require.NoError(t, wsjson.Write(ctx, conn, Event{Type: EventTypePing}))
	evt := readEvent(t, conn)
	assert.Equal(t, EventTypePong, evt.Type)
}
