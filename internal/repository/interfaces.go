package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/upbartr/backend/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

type ConversationRepository interface {
	// GetOrCreateByUsers returns the conversation for the canonical
	// pair (userA, userB), creating it together with its two
	// participant rows if none exists. The bool reports whether a new
	// row was inserted.
	GetOrCreateByUsers(ctx context.Context, conv *domain.Conversation) (*domain.Conversation, bool, error)
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	IsParticipant(ctx context.Context, conversationID string, userID uuid.UUID) (bool, error)
	ListSummaries(ctx context.Context, userID uuid.UUID) ([]domain.ConversationSummary, error)
	ToggleStar(ctx context.Context, conversationID string, userID uuid.UUID) (bool, error)
}

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error)
	// MarkRead flips read=true on unread CHAT messages addressed to
	// readerID in the conversation and returns the number of rows
	// updated. Calling it again is a no-op.
	MarkRead(ctx context.Context, conversationID string, readerID uuid.UUID) (int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
}
