package handlers

import (
	"encoding/json"
	"net/http"

	sessionstore "github.com/markdave123-py/Conversa/internal/core/session-store"
	"github.com/markdave123-py/Conversa/internal/models"
)

// sessionFromRequest loads the caller's session, initializing an empty one
// when the store has nothing live. A store read failure degrades to a fresh
// session rather than failing the request; continuity is lost, not service.
func sessionFromRequest(r *http.Request, store sessionstore.Store) (*models.Session, bool) {
	userID, _ := r.Context().Value("user_id").(string)
	sessionID, _ := r.Context().Value("session_id").(string)
	if userID == "" || sessionID == "" {
		return nil, false
	}

	sess, err := store.Get(r.Context(), sessionID)
	if err != nil || sess == nil {
		return models.NewSession(sessionID, userID), true
	}
	return sess, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
