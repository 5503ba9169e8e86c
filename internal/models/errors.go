package models

import (
	"fmt"
	"time"
)

// IndexUnavailableError means the platform could not create or resolve a
// content index at all. Fatal to the operation that needed the index.
type IndexUnavailableError struct {
	Op  string // sub-step that failed: "retrieve", "create", "attach"
	Err error
}

func (e *IndexUnavailableError) Error() string {
	return fmt.Sprintf("content index unavailable during %s: %v", e.Op, e.Err)
}

func (e *IndexUnavailableError) Unwrap() error { return e.Err }

// IndexingFailedError means a file's indexing job reached failed or
// cancelled. The file stays registered with the platform but is unusable
// for retrieval; callers degrade instead of aborting the user turn.
type IndexingFailedError struct {
	FileID string
	Status MembershipStatus
}

func (e *IndexingFailedError) Error() string {
	return fmt.Sprintf("indexing of file %s terminated with status %s", e.FileID, e.Status)
}

// IndexingTimeoutError means polling exhausted its budget without reaching
// a terminal state. Treated like IndexingFailedError: degrade, don't block.
type IndexingTimeoutError struct {
	FileID  string
	Elapsed time.Duration
}

func (e *IndexingTimeoutError) Error() string {
	return fmt.Sprintf("indexing of file %s not confirmed after %s", e.FileID, e.Elapsed)
}

// ConversationUnavailableError means the platform failed to create or return
// a conversation id.
type ConversationUnavailableError struct {
	Err error
}

func (e *ConversationUnavailableError) Error() string {
	return fmt.Sprintf("conversation unavailable: %v", e.Err)
}

func (e *ConversationUnavailableError) Unwrap() error { return e.Err }

// SessionPersistenceError means the session store rejected a write. The
// in-memory ids still serve the current request; only continuity is lost.
type SessionPersistenceError struct {
	SessionID string
	Err       error
}

func (e *SessionPersistenceError) Error() string {
	return fmt.Sprintf("session %s not persisted: %v", e.SessionID, e.Err)
}

func (e *SessionPersistenceError) Unwrap() error { return e.Err }
