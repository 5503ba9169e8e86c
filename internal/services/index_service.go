package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/Conversa/internal/core/platform"
	sessionstore "github.com/markdave123-py/Conversa/internal/core/session-store"
	"github.com/markdave123-py/Conversa/internal/models"
	"github.com/markdave123-py/Conversa/internal/pkg/logger"
)

const (
	defaultPollInterval = 1500 * time.Millisecond
	defaultPollTimeout  = 120 * time.Second
)

// ContentIndexService owns the create-or-reuse lifecycle of the content
// index ("vector store") bound to a conversation, attaches imported files to
// it, and makes indexing completion observable to the caller.
//
// The invariant is one index per conversation. Recreating the index on every
// upload would orphan previously attached files and break retrieval
// continuity, so an id that still resolves on the platform is always reused.
type ContentIndexService struct {
	platform     platform.Adapter
	sessions     sessionstore.Store
	log          logger.ILogger
	pollInterval time.Duration
	pollTimeout  time.Duration
}

func NewContentIndexService(p platform.Adapter, sessions sessionstore.Store, log logger.ILogger, pollInterval, pollTimeout time.Duration) *ContentIndexService {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	if pollTimeout <= 0 {
		pollTimeout = defaultPollTimeout
	}
	return &ContentIndexService{
		platform:     p,
		sessions:     sessions,
		log:          log,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
	}
}

// GetOrCreate returns the session's content index id, verifying a recorded
// id against the platform before trusting it and creating a fresh index only
// when no live one exists. The session is mutated and saved; a failed save is
// logged and tolerated because the in-memory id still serves this request.
//
// Racing calls on the same session are safe but not atomic: two simultaneous
// first uploads may each create an index, and the session keeps whichever
// write lands last. The store offers no transactional read-modify-write, so
// that gap is accepted rather than papered over.
func (s *ContentIndexService) GetOrCreate(ctx context.Context, conversationID string, sess *models.Session) (string, error) {
	if sess.ContentIndexID != "" {
		idx, err := s.platform.RetrieveIndex(ctx, sess.ContentIndexID)
		if err == nil {
			return idx.ID, nil
		}
		if !errors.Is(err, platform.ErrNotFound) {
			return "", &models.IndexUnavailableError{Op: "retrieve", Err: err}
		}
		s.log.Warn("index", "recorded content index no longer resolves, recreating", map[string]interface{}{
			"session_id": sess.ID,
			"index_id":   sess.ContentIndexID,
		})
	}

	idx, err := s.platform.CreateIndex(ctx, indexName(conversationID))
	if err != nil {
		return "", &models.IndexUnavailableError{Op: "create", Err: err}
	}

	sess.ContentIndexID = idx.ID
	if err := s.sessions.Save(ctx, sess); err != nil {
		persistErr := &models.SessionPersistenceError{SessionID: sess.ID, Err: err}
		s.log.Error("index", "content index id not persisted", map[string]interface{}{
			"session_id": sess.ID,
			"index_id":   idx.ID,
			"error":      persistErr.Error(),
		})
	}

	s.log.Info("index", "content index created", map[string]interface{}{
		"session_id":      sess.ID,
		"index_id":        idx.ID,
		"conversation_id": conversationID,
	})
	return idx.ID, nil
}

// indexName derives a deterministic index name from the conversation, or a
// generated one when no conversation exists yet.
func indexName(conversationID string) string {
	if conversationID == "" {
		return "ci-" + uuid.NewString()
	}
	return "ci-" + conversationID
}

// Attach submits a file handle to the index. Submitting an already-member
// file is not an error: the platform's duplicate rejection is absorbed by
// reading the existing membership back.
func (s *ContentIndexService) Attach(ctx context.Context, indexID string, handle models.FileHandle) (models.IndexMembership, error) {
	m, err := s.platform.AddFileToIndex(ctx, indexID, handle.ID)
	if err == nil {
		return m, nil
	}

	if existing, retrieveErr := s.platform.RetrieveMembership(ctx, indexID, handle.ID); retrieveErr == nil {
		return existing, nil
	}
	return models.IndexMembership{}, fmt.Errorf("attach file %s to index %s: %w", handle.ID, indexID, err)
}

// AwaitIndexed polls the file's membership until it reaches a terminal
// status or the budget runs out. Transient poll errors are tolerated; the
// loop keeps going until something definitive happens. A zero timeout or
// interval falls back to the service defaults.
//
// completed returns the membership; failed/cancelled returns
// IndexingFailedError; budget exhaustion returns IndexingTimeoutError. None
// of these cancel the platform-side indexing job.
func (s *ContentIndexService) AwaitIndexed(ctx context.Context, indexID string, handle models.FileHandle, timeout, interval time.Duration) (models.IndexMembership, error) {
	if timeout <= 0 {
		timeout = s.pollTimeout
	}
	if interval <= 0 {
		interval = s.pollInterval
	}

	start := time.Now()
	deadline := start.Add(timeout)

	for {
		m, err := s.platform.RetrieveMembership(ctx, indexID, handle.ID)
		if err != nil {
			// Network hiccups are not a verdict; keep polling.
			s.log.Debug("index", "membership poll failed, retrying", map[string]interface{}{
				"index_id": indexID,
				"file_id":  handle.ID,
				"error":    err.Error(),
			})
		} else {
			switch m.Status {
			case models.MembershipCompleted:
				return m, nil
			case models.MembershipFailed, models.MembershipCancelled:
				return m, &models.IndexingFailedError{FileID: handle.ID, Status: m.Status}
			}
		}

		if time.Now().Add(interval).After(deadline) {
			elapsed := time.Since(start)
			s.log.Warn("index", "indexing not confirmed within budget", map[string]interface{}{
				"index_id": indexID,
				"file_id":  handle.ID,
				"elapsed":  elapsed.String(),
			})
			return models.IndexMembership{}, &models.IndexingTimeoutError{FileID: handle.ID, Elapsed: elapsed}
		}

		select {
		case <-ctx.Done():
			return models.IndexMembership{}, ctx.Err()
		case <-time.After(interval):
		}
	}
}
