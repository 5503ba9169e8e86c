package services

import (
	"context"

	"github.com/markdave123-py/Conversa/internal/core/platform"
	"github.com/markdave123-py/Conversa/internal/models"
	"github.com/markdave123-py/Conversa/internal/pkg/logger"
)

// ToolConfig controls how a turn is armed. AttachmentFileIDs rides along on
// the message itself; the content index binding comes from the dispatcher's
// contentIndexID argument.
type ToolConfig struct {
	AttachmentFileIDs []string
}

// DispatchService assembles a single outbound user turn and submits it to
// the assistant platform, buffered or streamed.
type DispatchService struct {
	platform platform.Adapter
	log      logger.ILogger
}

func NewDispatchService(p platform.Adapter, log logger.ILogger) *DispatchService {
	return &DispatchService{platform: p, log: log}
}

func (s *DispatchService) buildRequest(conversationID, contentIndexID, text string, tools ToolConfig) platform.ResponseRequest {
	req := platform.ResponseRequest{
		ConversationID:    conversationID,
		Text:              text,
		AttachmentFileIDs: tools.AttachmentFileIDs,
	}
	if contentIndexID != "" {
		req.IndexIDs = []string{contentIndexID}
	} else {
		// Degraded mode: the turn still goes out, it just can't search files.
		s.log.Warn("dispatch", "sending turn without content index binding", map[string]interface{}{
			"conversation_id": conversationID,
		})
	}
	return req
}

// Send submits the turn and blocks for the full reply. The conversation id
// in the reply is taken from the platform's response, because the platform
// may assign it lazily on the first turn.
func (s *DispatchService) Send(ctx context.Context, conversationID, contentIndexID, text string, tools ToolConfig) (models.Reply, error) {
	return s.platform.CreateResponse(ctx, s.buildRequest(conversationID, contentIndexID, text, tools))
}

// SendStream submits the turn and forwards text deltas to onDelta as they
// arrive, returning the accumulated reply at the end. Cancelling ctx (client
// disconnect) aborts the in-flight platform request; nothing is persisted
// beyond what was already flushed before the disconnect.
func (s *DispatchService) SendStream(ctx context.Context, conversationID, contentIndexID, text string, tools ToolConfig, onDelta func(string)) (models.Reply, error) {
	return s.platform.StreamResponse(ctx, s.buildRequest(conversationID, contentIndexID, text, tools), func(ev platform.StreamEvent) {
		if ev.Delta != "" && onDelta != nil {
			onDelta(ev.Delta)
		}
	})
}
