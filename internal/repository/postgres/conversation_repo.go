package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/upbartr/backend/internal/domain"
)

type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

// GetOrCreateByUsers upserts on the canonical (user_a, user_b) pair.
// The UNIQUE constraint makes concurrent first messages between the
// same two users converge on a single conversation: the loser of the
// insert race re-selects the winner's row.
func (r *ConversationRepo) GetOrCreateByUsers(ctx context.Context, conv *domain.Conversation) (*domain.Conversation, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	var id string
	err = tx.QueryRow(ctx, `
		INSERT INTO conversations (id, user_a, user_b, skill_request_id, application_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_a, user_b) DO NOTHING
		RETURNING id`,
		conv.ID, conv.UserA, conv.UserB, conv.SkillRequestID, conv.ApplicationID, conv.CreatedAt,
	).Scan(&id)

	switch {
	case err == nil:
		// Fresh conversation: write both participant links.
		_, err = tx.Exec(ctx, `
			INSERT INTO conversation_participants (conversation_id, user_id, starred, joined_at)
			VALUES ($1, $2, false, $4), ($1, $3, false, $4)`,
			conv.ID, conv.UserA, conv.UserB, conv.CreatedAt,
		)
		if err != nil {
			return nil, false, fmt.Errorf("creating participants: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, false, err
		}
		return conv, true, nil

	case errors.Is(err, pgx.ErrNoRows):
		// Lost the race or the pair already had a conversation.
		existing, err := scanConversation(tx.QueryRow(ctx,
			"SELECT "+conversationColumns+" FROM conversations WHERE user_a = $1 AND user_b = $2",
			conv.UserA, conv.UserB,
		))
		if err != nil {
			return nil, false, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, false, err
		}
		return existing, false, nil

	default:
		return nil, false, err
	}
}

const conversationColumns = "id, user_a, user_b, skill_request_id, application_id, created_at"

func (r *ConversationRepo) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	conv, err := scanConversation(r.pool.QueryRow(ctx,
		"SELECT "+conversationColumns+" FROM conversations WHERE id = $1", id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return conv, err
}

func (r *ConversationRepo) IsParticipant(ctx context.Context, conversationID string, userID uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM conversation_participants
			WHERE conversation_id = $1 AND user_id = $2
		)`, conversationID, userID,
	).Scan(&ok)
	return ok, err
}

func (r *ConversationRepo) ListSummaries(ctx context.Context, userID uuid.UUID) ([]domain.ConversationSummary, error) {
	query := `
		SELECT c.id,
			u.id, u.username, u.name, u.avatar_url, u.rating, u.verified,
			last.content, last.created_at,
			COALESCE(unread.n, 0),
			c.skill_request_id,
			p.starred
		FROM conversations c
		JOIN conversation_participants p ON p.conversation_id = c.id AND p.user_id = $1
		JOIN users u ON u.id = CASE WHEN c.user_a = $1 THEN c.user_b ELSE c.user_a END
		LEFT JOIN LATERAL (
			SELECT m.content, m.created_at
			FROM messages m
			WHERE m.conversation_id = c.id
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT 1
		) last ON true
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS n
			FROM messages m
			WHERE m.conversation_id = c.id
				AND m.receiver_id = $1 AND m.read = false AND m.type = 'CHAT'
		) unread ON true
		ORDER BY last.created_at DESC NULLS LAST, c.created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []domain.ConversationSummary
	for rows.Next() {
		var s domain.ConversationSummary
		if err := rows.Scan(
			&s.ID,
			&s.Participant.ID, &s.Participant.Username, &s.Participant.Name,
			&s.Participant.AvatarURL, &s.Participant.Rating, &s.Participant.Verified,
			&s.LastMessage, &s.Timestamp,
			&s.UnreadCount,
			&s.SkillRequestID,
			&s.IsStarred,
		); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *ConversationRepo) ToggleStar(ctx context.Context, conversationID string, userID uuid.UUID) (bool, error) {
	var starred bool
	err := r.pool.QueryRow(ctx, `
		UPDATE conversation_participants
		SET starred = NOT starred
		WHERE conversation_id = $1 AND user_id = $2
		RETURNING starred`,
		conversationID, userID,
	).Scan(&starred)
	return starred, err
}

func scanConversation(row pgx.Row) (*domain.Conversation, error) {
	var c domain.Conversation
	err := row.Scan(&c.ID, &c.UserA, &c.UserB, &c.SkillRequestID, &c.ApplicationID, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
