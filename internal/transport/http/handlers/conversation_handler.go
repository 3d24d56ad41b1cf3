package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/upbartr/backend/internal/service"
	"github.com/upbartr/backend/internal/transport/http/middleware"
)

type ConversationHandler struct {
	conversations *service.ConversationService
}

func NewConversationHandler(conversations *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

// List returns the caller's inbox: one summary per conversation with
// the other participant's public profile, last message and unread
// count, most recently active first.
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	summaries, err := h.conversations.ListConversations(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Msg("list conversations")
		writeError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, summaries)
}

// Messages returns a conversation's messages oldest first. Reading a
// conversation marks the caller's unread messages as read.
func (h *ConversationHandler) Messages(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	convID := r.PathValue("conversationId")

	views, err := h.conversations.Messages(r.Context(), userID, convID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotParticipant):
			writeError(w, http.StatusForbidden, "You are not a participant of this conversation")
		default:
			log.Error().Err(err).Str("conversation_id", convID).Msg("list messages")
			writeError(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, views)
}

// Send appends a message to an existing conversation.
func (h *ConversationHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	convID := r.PathValue("conversationId")

	var input struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	view, err := h.conversations.SendToConversation(r.Context(), userID, convID, input.Content)
	if err != nil {
		h.writeSendError(w, convID, err)
		return
	}

	writeJSON(w, http.StatusCreated, view)
}

// SendDirect sends a message addressed to a user, resolving or
// creating the conversation as needed.
func (h *ConversationHandler) SendDirect(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input struct {
		ConversationID string    `json:"conversation_id"`
		ReceiverID     uuid.UUID `json:"receiver_id"`
		Content        string    `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if input.ConversationID == "" && input.ReceiverID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "receiver_id is required")
		return
	}

	view, err := h.conversations.SendDirect(r.Context(), userID, input.ReceiverID, input.ConversationID, input.Content)
	if err != nil {
		h.writeSendError(w, input.ConversationID, err)
		return
	}

	writeJSON(w, http.StatusCreated, view)
}

// Stats returns the caller's total unread message count.
func (h *ConversationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	n, err := h.conversations.UnreadCount(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Msg("unread stats")
		writeError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"unread_messages": n})
}

// ToggleStar flips the caller's starred flag on a conversation.
func (h *ConversationHandler) ToggleStar(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	convID := r.PathValue("conversationId")

	starred, err := h.conversations.ToggleStar(r.Context(), userID, convID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConversationNotFound):
			writeError(w, http.StatusNotFound, "Conversation not found")
		default:
			log.Error().Err(err).Str("conversation_id", convID).Msg("toggle star")
			writeError(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"is_starred": starred})
}

func (h *ConversationHandler) writeSendError(w http.ResponseWriter, convID string, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyContent):
		writeError(w, http.StatusBadRequest, "Message content is required")
	case errors.Is(err, service.ErrInvalidMessageType):
		writeError(w, http.StatusBadRequest, "Invalid message type")
	case errors.Is(err, service.ErrCannotMessageSelf):
		writeError(w, http.StatusBadRequest, "Cannot start a conversation with yourself")
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, service.ErrConversationNotFound):
		writeError(w, http.StatusNotFound, "Conversation not found")
	case errors.Is(err, service.ErrNotParticipant):
		writeError(w, http.StatusForbidden, "You are not a participant of this conversation")
	default:
		log.Error().Err(err).Str("conversation_id", convID).Msg("send message")
		writeError(w, http.StatusInternalServerError, "Something went wrong")
	}
}
