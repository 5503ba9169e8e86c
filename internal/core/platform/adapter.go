package platform

import (
	"context"
	"errors"

	"github.com/markdave123-py/Conversa/internal/config"
	"github.com/markdave123-py/Conversa/internal/models"
	"github.com/markdave123-py/Conversa/internal/pkg/logger"
)

// ErrNotFound is returned when the platform reports that an id no longer
// resolves (expired index, deleted file). Callers distinguish this from
// outright unavailability.
var ErrNotFound = errors.New("platform: not found")

// ImportRequest registers raw bytes with the platform's file store.
type ImportRequest struct {
	Filename    string
	ContentType string
	Category    models.FileCategory
	Data        []byte
}

// ResponseRequest is one outbound user turn.
type ResponseRequest struct {
	ConversationID string
	Text           string
	// IndexIDs binds a file_search tool to these content indexes. Empty
	// means the turn runs text-only.
	IndexIDs []string
	// AttachmentFileIDs are file handles attached directly to the message.
	AttachmentFileIDs []string
}

// StreamEvent is one incremental piece of a streamed reply.
type StreamEvent struct {
	Delta string
	Done  bool
}

// Adapter is the single seam between the gateway and the assistant
// platform. The vendor SDK's surface shifts between releases, so every call
// has two equivalent implementations: a structured-client path (go-openai)
// and a raw-HTTP path. Both return the same logical shapes; the rest of the
// system never knows which one is active.
type Adapter interface {
	CreateConversation(ctx context.Context) (models.Conversation, error)

	CreateIndex(ctx context.Context, name string) (models.ContentIndex, error)
	RetrieveIndex(ctx context.Context, indexID string) (models.ContentIndex, error)
	AddFileToIndex(ctx context.Context, indexID, fileID string) (models.IndexMembership, error)
	RetrieveMembership(ctx context.Context, indexID, fileID string) (models.IndexMembership, error)

	ImportFile(ctx context.Context, req ImportRequest) (models.FileHandle, error)

	CreateResponse(ctx context.Context, req ResponseRequest) (models.Reply, error)
	StreamResponse(ctx context.Context, req ResponseRequest, emit func(StreamEvent)) (models.Reply, error)
}

// New selects the adapter implementation once at startup. The constructed
// client is shared process-wide; never build one per request.
//
// "rest" forces the raw-HTTP path. Anything else probes the structured
// client: calls the SDK covers (files, vector stores) go through it, and the
// two endpoints absent from its surface (conversations, responses) fall back
// to the shared REST core, so both modes are logically complete.
func New(cfg *config.Config, log logger.ILogger) Adapter {
	rest := NewRESTClient(cfg.PlatformBaseURL, cfg.PlatformAPIKey, cfg.PlatformModel)
	if cfg.PlatformClient == "rest" {
		log.Info("platform", "using raw-HTTP platform client", map[string]interface{}{
			"base_url": cfg.PlatformBaseURL,
		})
		return rest
	}
	log.Info("platform", "using structured platform client with HTTP fallback", map[string]interface{}{
		"base_url": cfg.PlatformBaseURL,
	})
	return NewSDKClient(cfg.PlatformAPIKey, cfg.PlatformBaseURL, rest)
}
