package models

import (
	"time"
)

// FileCategory tells the platform what a staged file will be used for.
type FileCategory string

const (
	CategoryFileSearch      FileCategory = "file_search"
	CategoryCodeInterpreter FileCategory = "code_interpreter"
	CategoryContext         FileCategory = "context"
)

// ConversationOrigin records who minted a conversation id. Ids fabricated
// locally by older builds must never be sent to the platform, so provenance
// is stored in the session record instead of being sniffed from the format.
type ConversationOrigin string

const (
	OriginPlatform ConversationOrigin = "platform"
	OriginLocal    ConversationOrigin = "local"
)

// Session is the per-browser-session state the gateway keeps between
// requests. The store applies a rolling 24h expiry on every save.
type Session struct {
	ID                 string                `db:"id" json:"id"`
	UserID             string                `db:"user_id" json:"user_id"`
	ConversationID     string                `db:"conversation_id" json:"conversation_id,omitempty"`
	ConversationOrigin ConversationOrigin    `db:"conversation_origin" json:"conversation_origin,omitempty"`
	ContentIndexID     string                `db:"content_index_id" json:"content_index_id,omitempty"`
	StagedFiles        map[string]StagedFile `db:"staged_files" json:"staged_files,omitempty"`
	UpdatedAt          time.Time             `db:"updated_at" json:"updated_at"`
}

// NewSession returns an empty session for the given user.
func NewSession(id, userID string) *Session {
	return &Session{
		ID:          id,
		UserID:      userID,
		StagedFiles: make(map[string]StagedFile),
	}
}

// Clone returns a deep copy so callers never share the staged-file map.
func (s *Session) Clone() *Session {
	cp := *s
	cp.StagedFiles = make(map[string]StagedFile, len(s.StagedFiles))
	for k, v := range s.StagedFiles {
		cp.StagedFiles[k] = v
	}
	return &cp
}

// StagedFile is the metadata kept per imported file, keyed by file handle id.
type StagedFile struct {
	Filename    string       `json:"filename"`
	ContentType string       `json:"content_type"`
	Category    FileCategory `json:"category"`
}

// Conversation is a durable multi-turn context on the assistant platform.
type Conversation struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// ContentIndex is the platform-side container searched for
// retrieval-augmented answers ("vector store" in platform terms).
type ContentIndex struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	FileCount int    `json:"file_count"`
	Status    string `json:"status"`
}

// FileHandle is the opaque id returned after registering a blob with the
// platform's file store. Never mutated after creation.
type FileHandle struct {
	ID          string       `json:"id"`
	Filename    string       `json:"filename"`
	ContentType string       `json:"content_type"`
	Category    FileCategory `json:"category"`
}

// MembershipStatus is the indexing state of one file within one index.
type MembershipStatus string

const (
	MembershipQueued     MembershipStatus = "queued"
	MembershipInProgress MembershipStatus = "in_progress"
	MembershipCompleted  MembershipStatus = "completed"
	MembershipFailed     MembershipStatus = "failed"
	MembershipCancelled  MembershipStatus = "cancelled"
)

// Terminal reports whether the status can no longer change.
func (s MembershipStatus) Terminal() bool {
	switch s {
	case MembershipCompleted, MembershipFailed, MembershipCancelled:
		return true
	}
	return false
}

// IndexMembership is the record of one file submitted to one content index.
type IndexMembership struct {
	IndexID   string           `json:"index_id"`
	FileID    string           `json:"file_id"`
	Status    MembershipStatus `json:"status"`
	LastError string           `json:"last_error,omitempty"`
}

// Reply is a finished assistant turn. ConversationID is echoed back because
// the platform may assign it lazily on the first response.
type Reply struct {
	Text           string `json:"text"`
	ResponseID     string `json:"response_id"`
	ConversationID string `json:"conversation_id"`
}
