package services

import (
	"context"
	"regexp"

	"github.com/markdave123-py/Conversa/internal/core/platform"
	sessionstore "github.com/markdave123-py/Conversa/internal/core/session-store"
	"github.com/markdave123-py/Conversa/internal/models"
	"github.com/markdave123-py/Conversa/internal/pkg/logger"
)

// legacyLocalIDPattern matches conversation ids fabricated locally by older
// builds (conv_<timestamp>_<random>). Those ids never existed on the
// platform and must be regenerated. New records carry an explicit origin tag
// instead; the pattern only covers sessions written before the tag existed.
var legacyLocalIDPattern = regexp.MustCompile(`^conv_\d+_[A-Za-z0-9]+$`)

// ConversationService owns the create-or-reuse lifecycle of the durable
// conversation id persisted in the user's session.
type ConversationService struct {
	platform platform.Adapter
	sessions sessionstore.Store
	log      logger.ILogger
}

func NewConversationService(p platform.Adapter, sessions sessionstore.Store, log logger.ILogger) *ConversationService {
	return &ConversationService{platform: p, sessions: sessions, log: log}
}

// GetOrCreate returns the session's conversation id, creating one on the
// platform if the session has none it can trust. The new id is flushed to
// the session store before being handed back; losing it would fork the
// conversation on the next request. A failed flush is logged and the id is
// still returned, trading durability for this one request.
func (s *ConversationService) GetOrCreate(ctx context.Context, sess *models.Session) (string, error) {
	if id := sess.ConversationID; id != "" && s.trusted(sess) {
		return id, nil
	}

	conv, err := s.platform.CreateConversation(ctx)
	if err != nil {
		return "", &models.ConversationUnavailableError{Err: err}
	}

	sess.ConversationID = conv.ID
	sess.ConversationOrigin = models.OriginPlatform
	if err := s.sessions.Save(ctx, sess); err != nil {
		persistErr := &models.SessionPersistenceError{SessionID: sess.ID, Err: err}
		s.log.Error("conversation", "conversation id not persisted", map[string]interface{}{
			"session_id":      sess.ID,
			"conversation_id": conv.ID,
			"error":           persistErr.Error(),
		})
	}

	s.log.Info("conversation", "conversation created", map[string]interface{}{
		"session_id":      sess.ID,
		"conversation_id": conv.ID,
	})
	return conv.ID, nil
}

// trusted reports whether the recorded conversation id is safe to send to
// the platform. Explicitly local ids and untagged ids matching the legacy
// local format are discarded; untagged ids in any other shape predate the
// origin field and are grandfathered as platform-issued.
func (s *ConversationService) trusted(sess *models.Session) bool {
	switch sess.ConversationOrigin {
	case models.OriginPlatform:
		return true
	case models.OriginLocal:
		return false
	}
	if legacyLocalIDPattern.MatchString(sess.ConversationID) {
		s.log.Warn("conversation", "discarding locally fabricated conversation id", map[string]interface{}{
			"session_id":      sess.ID,
			"conversation_id": sess.ConversationID,
		})
		return false
	}
	return true
}

// Reset discards the conversation and its content index binding together
// and immediately starts a fresh conversation. The old index is abandoned,
// not deleted; a conversation must never keep file-search bindings from a
// previous one.
func (s *ConversationService) Reset(ctx context.Context, sess *models.Session) (string, error) {
	sess.ConversationID = ""
	sess.ConversationOrigin = ""
	sess.ContentIndexID = ""
	sess.StagedFiles = make(map[string]models.StagedFile)

	return s.GetOrCreate(ctx, sess)
}
