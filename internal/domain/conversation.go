package domain

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Conversation is a thread between exactly two users. UserA and UserB
// are stored in canonical order (UserA < UserB) so the pair carries a
// uniqueness constraint regardless of who messaged first.
type Conversation struct {
	ID             string     `json:"id"`
	UserA          uuid.UUID  `json:"user_a"`
	UserB          uuid.UUID  `json:"user_b"`
	SkillRequestID *uuid.UUID `json:"skill_request_id,omitempty"`
	ApplicationID  *uuid.UUID `json:"application_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Participant links a conversation to one of its two users.
type Participant struct {
	ConversationID string    `json:"conversation_id"`
	UserID         uuid.UUID `json:"user_id"`
	Starred        bool      `json:"starred"`
	JoinedAt       time.Time `json:"joined_at"`
}

// ConversationSummary is one row of the authenticated user's inbox.
type ConversationSummary struct {
	ID             string        `json:"id"`
	Participant    PublicProfile `json:"participant"`
	LastMessage    *string       `json:"last_message,omitempty"`
	Timestamp      *time.Time    `json:"timestamp,omitempty"`
	UnreadCount    int           `json:"unread_count"`
	SkillRequestID *uuid.UUID    `json:"skill_request_id,omitempty"`
	IsStarred      bool          `json:"is_starred"`
}

func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	return c.UserA == userID || c.UserB == userID
}

// OtherParticipant returns the participant that is not userID.
func (c *Conversation) OtherParticipant(userID uuid.UUID) uuid.UUID {
	if c.UserA == userID {
		return c.UserB
	}
	return c.UserA
}

// CanonicalPair orders two user IDs so (a, b) and (b, a) map to the
// same conversation row.
func CanonicalPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() > b.String() {
		return b, a
	}
	return a, b
}

// NewConversationID generates an identifier of the form conv_<hex>.
func NewConversationID() string {
	buf := make([]byte, 8)
	rand.Read(buf)
	return "conv_" + hex.EncodeToString(buf)
}
