package sessionstore

import (
	"context"

	"github.com/markdave123-py/Conversa/internal/models"
)

// Store persists per-browser-session state between requests. Saves are
// per-row upserts with a rolling expiry; there is no transactional
// read-modify-write, so two racing writers resolve to whichever save lands
// last. Higher layers are written to tolerate exactly that.
type Store interface {
	// Get returns the live session, or (nil, nil) when none exists or it
	// has expired.
	Get(ctx context.Context, sessionID string) (*models.Session, error)

	// Save upserts the session and refreshes its expiry window.
	Save(ctx context.Context, session *models.Session) error

	// Delete removes the session outright (logout).
	Delete(ctx context.Context, sessionID string) error

	Close() error
}
