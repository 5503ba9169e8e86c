package handlers

import (
	"fmt"
	"net/http"

	sessionstore "github.com/markdave123-py/Conversa/internal/core/session-store"
	"github.com/markdave123-py/Conversa/internal/pkg/logger"
	"github.com/markdave123-py/Conversa/internal/services"
)

type ConversationHandler struct {
	sessions      sessionstore.Store
	conversations *services.ConversationService
	log           logger.ILogger
}

func NewConversationHandler(sessions sessionstore.Store, conversations *services.ConversationService, log logger.ILogger) *ConversationHandler {
	return &ConversationHandler{sessions: sessions, conversations: conversations, log: log}
}

// Reset discards the session's conversation and content index bindings and
// returns a fresh conversation id. The old index is abandoned platform-side.
func (h *ConversationHandler) Reset(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromRequest(r, h.sessions)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	convID, err := h.conversations.Reset(r.Context(), sess)
	if err != nil {
		http.Error(w, fmt.Sprintf("reset failed: %v", err), http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"conversation_id": convID})
}

// Current reports the session's conversation and index bindings without
// creating anything.
func (h *ConversationHandler) Current(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromRequest(r, h.sessions)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"conversation_id":  sess.ConversationID,
		"content_index_id": sess.ContentIndexID,
		"staged_files":     sess.StagedFiles,
	})
}
