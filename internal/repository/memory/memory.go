// Package memory provides in-memory implementations of the
// repository interfaces for tests and local development without a
// database.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/upbartr/backend/internal/domain"
)

var ErrNotParticipant = errors.New("memory: not a participant")

// Store holds all tables behind one mutex and hands out per-entity
// repository views.
type Store struct {
	mu           sync.Mutex
	users        map[uuid.UUID]*domain.User
	convs        map[string]*domain.Conversation
	participants map[string]map[uuid.UUID]*domain.Participant
	messages     []*domain.Message
}

func NewStore() *Store {
	return &Store{
		users:        make(map[uuid.UUID]*domain.User),
		convs:        make(map[string]*domain.Conversation),
		participants: make(map[string]map[uuid.UUID]*domain.Participant),
	}
}

func (s *Store) Users() *UserRepo                 { return &UserRepo{s} }
func (s *Store) Conversations() *ConversationRepo { return &ConversationRepo{s} }
func (s *Store) Messages() *MessageRepo           { return &MessageRepo{s} }

type UserRepo struct{ s *Store }

func (r *UserRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u := *user
	r.s.users[user.ID] = &u
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *UserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

type ConversationRepo struct{ s *Store }

func (r *ConversationRepo) GetOrCreateByUsers(_ context.Context, conv *domain.Conversation) (*domain.Conversation, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.convs {
		if existing.UserA == conv.UserA && existing.UserB == conv.UserB {
			cp := *existing
			return &cp, false, nil
		}
	}

	cp := *conv
	r.s.convs[conv.ID] = &cp
	r.s.participants[conv.ID] = map[uuid.UUID]*domain.Participant{
		conv.UserA: {ConversationID: conv.ID, UserID: conv.UserA, JoinedAt: conv.CreatedAt},
		conv.UserB: {ConversationID: conv.ID, UserID: conv.UserB, JoinedAt: conv.CreatedAt},
	}
	out := cp
	return &out, true, nil
}

func (r *ConversationRepo) GetByID(_ context.Context, id string) (*domain.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.convs[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (r *ConversationRepo) IsParticipant(_ context.Context, conversationID string, userID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.participants[conversationID][userID]
	return ok, nil
}

func (r *ConversationRepo) ListSummaries(_ context.Context, userID uuid.UUID) ([]domain.ConversationSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var summaries []domain.ConversationSummary
	for id, conv := range r.s.convs {
		p, ok := r.s.participants[id][userID]
		if !ok {
			continue
		}

		other := r.s.users[conv.OtherParticipant(userID)]
		s := domain.ConversationSummary{
			ID:             id,
			SkillRequestID: conv.SkillRequestID,
			IsStarred:      p.Starred,
		}
		if other != nil {
			s.Participant = other.Public()
		}

		for _, m := range r.s.messages {
			if m.ConversationID != id {
				continue
			}
			if s.Timestamp == nil || m.CreatedAt.After(*s.Timestamp) {
				content, ts := m.Content, m.CreatedAt
				s.LastMessage = &content
				s.Timestamp = &ts
			}
			if m.ReceiverID == userID && !m.Read && m.Type == domain.MessageTypeChat {
				s.UnreadCount++
			}
		}
		summaries = append(summaries, s)
	}

	sort.Slice(summaries, func(i, j int) bool {
		ti, tj := summaries[i].Timestamp, summaries[j].Timestamp
		switch {
		case ti == nil:
			return false
		case tj == nil:
			return true
		default:
			return ti.After(*tj)
		}
	})
	return summaries, nil
}

func (r *ConversationRepo) ToggleStar(_ context.Context, conversationID string, userID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.participants[conversationID][userID]
	if !ok {
		return false, ErrNotParticipant
	}
	p.Starred = !p.Starred
	return p.Starred, nil
}

type MessageRepo struct{ s *Store }

func (r *MessageRepo) Create(_ context.Context, msg *domain.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *msg
	r.s.messages = append(r.s.messages, &cp)
	return nil
}

func (r *MessageRepo) ListByConversation(_ context.Context, conversationID string) ([]domain.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []domain.Message
	for _, m := range r.s.messages {
		if m.ConversationID == conversationID {
			out = append(out, *m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MessageRepo) MarkRead(_ context.Context, conversationID string, readerID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for _, m := range r.s.messages {
		if m.ConversationID == conversationID && m.ReceiverID == readerID && !m.Read && m.Type == domain.MessageTypeChat {
			m.Read = true
			n++
		}
	}
	return n, nil
}

func (r *MessageRepo) CountUnread(_ context.Context, userID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for _, m := range r.s.messages {
		if m.ReceiverID == userID && !m.Read && m.Type == domain.MessageTypeChat {
			n++
		}
	}
	return n, nil
}
