package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/upbartr/backend/internal/domain"
	"github.com/upbartr/backend/internal/metrics"
	"github.com/upbartr/backend/internal/repository"
)

var (
	// ErrConversationNotFound covers both a missing conversation and
	// one the caller does not participate in, so an id probe cannot
	// distinguish "exists" from "forbidden".
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("you are not a participant of this conversation")
	ErrEmptyContent         = errors.New("message content is required")
	ErrInvalidMessageType   = errors.New("invalid message type")
	ErrCannotMessageSelf    = errors.New("cannot start a conversation with yourself")
	ErrUserNotFound         = errors.New("user not found")
)

type ConversationService struct {
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
	userRepo repository.UserRepository
	notifier Notifier
}

func NewConversationService(convRepo repository.ConversationRepository, msgRepo repository.MessageRepository, userRepo repository.UserRepository) *ConversationService {
	return &ConversationService{
		convRepo: convRepo,
		msgRepo:  msgRepo,
		userRepo: userRepo,
	}
}

func (s *ConversationService) SetNotifier(n Notifier) {
	s.notifier = n
}

// ResolveOrCreate finds the conversation between userID and
// otherUserID, creating it if none exists. When conversationID is
// non-empty it is loaded directly and the pair is ignored.
func (s *ConversationService) ResolveOrCreate(ctx context.Context, userID, otherUserID uuid.UUID, conversationID string) (*domain.Conversation, error) {
	if conversationID != "" {
		conv, err := s.convRepo.GetByID(ctx, conversationID)
		if err != nil {
			return nil, err
		}
		if conv == nil || !conv.HasParticipant(userID) {
			return nil, ErrConversationNotFound
		}
		return conv, nil
	}

	if userID == otherUserID {
		return nil, ErrCannotMessageSelf
	}

	other, err := s.userRepo.GetByID(ctx, otherUserID)
	if err != nil {
		return nil, err
	}
	if other == nil {
		return nil, ErrUserNotFound
	}

	a, b := domain.CanonicalPair(userID, otherUserID)
	conv, created, err := s.convRepo.GetOrCreateByUsers(ctx, &domain.Conversation{
		ID:        domain.NewConversationID(),
		UserA:     a,
		UserB:     b,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("resolving conversation: %w", err)
	}
	if created {
		metrics.ConversationsCreated.Inc()
	}
	return conv, nil
}

// SendToConversation appends a CHAT message to an existing
// conversation the sender participates in.
func (s *ConversationService) SendToConversation(ctx context.Context, senderID uuid.UUID, conversationID, content string) (*domain.MessageView, error) {
	conv, err := s.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil || !conv.HasParticipant(senderID) {
		return nil, ErrConversationNotFound
	}
	return s.append(ctx, conv, senderID, content, domain.MessageTypeChat)
}

// SendDirect resolves or creates the conversation for the pair, then
// appends the message. conversationID may be empty.
func (s *ConversationService) SendDirect(ctx context.Context, senderID, receiverID uuid.UUID, conversationID, content string) (*domain.MessageView, error) {
	conv, err := s.ResolveOrCreate(ctx, senderID, receiverID, conversationID)
	if err != nil {
		return nil, err
	}
	return s.append(ctx, conv, senderID, content, domain.MessageTypeChat)
}

func (s *ConversationService) append(ctx context.Context, conv *domain.Conversation, senderID uuid.UUID, content string, msgType domain.MessageType) (*domain.MessageView, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	if !msgType.Valid() {
		return nil, ErrInvalidMessageType
	}

	msg := &domain.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		SenderID:       senderID,
		ReceiverID:     conv.OtherParticipant(senderID),
		Content:        content,
		Type:           msgType,
		Read:           false,
		CreatedAt:      time.Now(),
	}

	if err := s.msgRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}
	metrics.MessagesSent.Inc()

	if s.notifier != nil {
		s.notifier.NotifyNewMessage(msg)
		s.notifier.NotifyUser(msg.ReceiverID, Notification{
			Type:           "new_message",
			ConversationID: conv.ID,
			From:           senderID.String(),
		})
	}

	view := msg.View(senderID)
	return &view, nil
}

// Messages lists a conversation oldest first and, as a side effect,
// marks the caller's unread CHAT messages read.
func (s *ConversationService) Messages(ctx context.Context, userID uuid.UUID, conversationID string) ([]domain.MessageView, error) {
	ok, err := s.convRepo.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotParticipant
	}

	msgs, err := s.msgRepo.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if _, err := s.msgRepo.MarkRead(ctx, conversationID, userID); err != nil {
		return nil, fmt.Errorf("marking messages read: %w", err)
	}

	views := make([]domain.MessageView, 0, len(msgs))
	for i := range msgs {
		views = append(views, msgs[i].View(userID))
	}
	return views, nil
}

// ListConversations returns the caller's inbox, most recent first.
func (s *ConversationService) ListConversations(ctx context.Context, userID uuid.UUID) ([]domain.ConversationSummary, error) {
	summaries, err := s.convRepo.ListSummaries(ctx, userID)
	if err != nil {
		return nil, err
	}
	if summaries == nil {
		summaries = []domain.ConversationSummary{}
	}
	return summaries, nil
}

// UnreadCount totals unread CHAT messages addressed to the user
// across all conversations.
func (s *ConversationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.msgRepo.CountUnread(ctx, userID)
}

// ToggleStar flips the caller's starred flag on a conversation.
func (s *ConversationService) ToggleStar(ctx context.Context, userID uuid.UUID, conversationID string) (bool, error) {
	ok, err := s.convRepo.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrConversationNotFound
	}
	return s.convRepo.ToggleStar(ctx, conversationID, userID)
}

// IsParticipant reports whether userID belongs to the conversation.
// The WebSocket hub uses it to authorize room joins.
func (s *ConversationService) IsParticipant(ctx context.Context, userID uuid.UUID, conversationID string) (bool, error) {
	return s.convRepo.IsParticipant(ctx, conversationID, userID)
}
