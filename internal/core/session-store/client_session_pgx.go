package sessionstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markdave123-py/Conversa/internal/config"
	"github.com/markdave123-py/Conversa/internal/models"
)

type PostgresStore struct {
	db  *sql.DB
	ttl time.Duration
}

func NewPostgresStore(ctx context.Context, cfg *config.Config) (Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("session store configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &PostgresStore{db: db, ttl: ttl}, nil
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	const q = `
		SELECT id, user_id, conversation_id, conversation_origin, content_index_id, staged_files, updated_at
		FROM sessions
		WHERE id = $1 AND expires_at > now()
	`
	var (
		sess   models.Session
		staged []byte
	)
	err := s.db.QueryRowContext(ctx, q, sessionID).Scan(
		&sess.ID, &sess.UserID, &sess.ConversationID, &sess.ConversationOrigin,
		&sess.ContentIndexID, &staged, &sess.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sess.StagedFiles = make(map[string]models.StagedFile)
	if len(staged) > 0 {
		if err := json.Unmarshal(staged, &sess.StagedFiles); err != nil {
			return nil, fmt.Errorf("decode staged files: %w", err)
		}
	}
	return &sess, nil
}

// Save is a single-row upsert; the expiry window rolls forward on every
// write, which is what gives sessions their 24h sliding lifetime.
func (s *PostgresStore) Save(ctx context.Context, session *models.Session) error {
	if session == nil {
		return errors.New("nil session")
	}
	staged, err := json.Marshal(session.StagedFiles)
	if err != nil {
		return fmt.Errorf("encode staged files: %w", err)
	}

	const q = `
		INSERT INTO sessions
			(id, user_id, conversation_id, conversation_origin, content_index_id, staged_files, expires_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, now() + $7::interval, now())
		ON CONFLICT (id) DO UPDATE SET
			user_id             = EXCLUDED.user_id,
			conversation_id     = EXCLUDED.conversation_id,
			conversation_origin = EXCLUDED.conversation_origin,
			content_index_id    = EXCLUDED.content_index_id,
			staged_files        = EXCLUDED.staged_files,
			expires_at          = EXCLUDED.expires_at,
			updated_at          = now()
	`
	interval := fmt.Sprintf("%d seconds", int(s.ttl.Seconds()))
	_, err = s.db.ExecContext(ctx, q,
		session.ID, session.UserID, session.ConversationID, string(session.ConversationOrigin),
		session.ContentIndexID, staged, interval,
	)
	return err
}

func (s *PostgresStore) Delete(ctx context.Context, sessionID string) error {
	const q = `DELETE FROM sessions WHERE id = $1`
	_, err := s.db.ExecContext(ctx, q, sessionID)
	return err
}
