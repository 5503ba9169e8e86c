package sessionstore

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/markdave123-py/Conversa/internal/models"
)

// MemoryStore keeps sessions in-process with a TTL cache. Used for local
// development and tests; it mirrors the Postgres store's semantics (copy on
// read/write, last save wins, rolling expiry).
type MemoryStore struct {
	cache *cache.Cache
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryStore{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (*models.Session, error) {
	if x, found := s.cache.Get(sessionID); found {
		return x.(*models.Session).Clone(), nil
	}
	return nil, nil
}

func (s *MemoryStore) Save(_ context.Context, session *models.Session) error {
	cp := session.Clone()
	cp.UpdatedAt = time.Now()
	s.cache.Set(session.ID, cp, cache.DefaultExpiration)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.cache.Delete(sessionID)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
