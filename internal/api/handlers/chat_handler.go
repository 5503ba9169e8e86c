package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	sessionstore "github.com/markdave123-py/Conversa/internal/core/session-store"
	"github.com/markdave123-py/Conversa/internal/models"
	"github.com/markdave123-py/Conversa/internal/pkg/logger"
	"github.com/markdave123-py/Conversa/internal/services"
)

type ChatHandler struct {
	sessions      sessionstore.Store
	conversations *services.ConversationService
	dispatch      *services.DispatchService
	log           logger.ILogger
}

func NewChatHandler(sessions sessionstore.Store, conversations *services.ConversationService, dispatch *services.DispatchService, log logger.ILogger) *ChatHandler {
	return &ChatHandler{sessions: sessions, conversations: conversations, dispatch: dispatch, log: log}
}

type chatRequest struct {
	Text string `json:"text"`
}

// prepareTurn resolves the conversation and index for an outbound turn. A
// conversation failure degrades to a stateless text turn instead of failing
// the request; the index is only ever reused here, never created.
func (h *ChatHandler) prepareTurn(r *http.Request, sess *models.Session) (convID, indexID string) {
	convID, err := h.conversations.GetOrCreate(r.Context(), sess)
	if err != nil {
		h.log.Warn("chat", "proceeding stateless, conversation unavailable", map[string]interface{}{
			"session_id": sess.ID,
			"error":      err.Error(),
		})
		convID = ""
	}
	return convID, sess.ContentIndexID
}

// captureConversation saves a platform-assigned conversation id the session
// didn't have yet. The platform may mint it lazily on the first response.
func (h *ChatHandler) captureConversation(r *http.Request, sess *models.Session, reply models.Reply) {
	if reply.ConversationID == "" || reply.ConversationID == sess.ConversationID {
		return
	}
	sess.ConversationID = reply.ConversationID
	sess.ConversationOrigin = models.OriginPlatform
	if err := h.sessions.Save(r.Context(), sess); err != nil {
		h.log.Error("chat", "conversation id not persisted", map[string]interface{}{
			"session_id": sess.ID,
			"error":      err.Error(),
		})
	}
}

func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromRequest(r, h.sessions)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	convID, indexID := h.prepareTurn(r, sess)

	reply, err := h.dispatch.Send(r.Context(), convID, indexID, req.Text, services.ToolConfig{})
	if err != nil {
		http.Error(w, fmt.Sprintf("send failed: %v", err), http.StatusBadGateway)
		return
	}

	h.captureConversation(r, sess, reply)
	writeJSON(w, http.StatusOK, reply)
}

// Stream sends the turn and relays text deltas to the client as
// server-sent events, finishing with the accumulated reply. A client
// disconnect cancels the request context, which aborts the in-flight
// platform call.
func (h *ChatHandler) Stream(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromRequest(r, h.sessions)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	convID, indexID := h.prepareTurn(r, sess)

	reply, err := h.dispatch.SendStream(r.Context(), convID, indexID, req.Text, services.ToolConfig{}, func(delta string) {
		payload, _ := json.Marshal(map[string]string{"delta": delta})
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	})
	if err != nil {
		payload, _ := json.Marshal(map[string]string{"error": err.Error()})
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
		return
	}

	h.captureConversation(r, sess, reply)

	final, _ := json.Marshal(map[string]any{
		"done":            true,
		"text":            reply.Text,
		"response_id":     reply.ResponseID,
		"conversation_id": reply.ConversationID,
	})
	fmt.Fprintf(w, "data: %s\n\n", final)
	flusher.Flush()
}
