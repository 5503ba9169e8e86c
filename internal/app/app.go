package app

import (
	"context"
	"time"

	"github.com/markdave123-py/Conversa/internal/config"
	objectclient "github.com/markdave123-py/Conversa/internal/core/object-client"
	"github.com/markdave123-py/Conversa/internal/core/platform"
	sessionstore "github.com/markdave123-py/Conversa/internal/core/session-store"
	"github.com/markdave123-py/Conversa/internal/pkg/logger"
	"github.com/markdave123-py/Conversa/internal/services"
)

type App struct {
	Sessions     sessionstore.Store
	ObjectClient objectclient.ObjectClient
	Platform     platform.Adapter
	Server       *Server
	Logger       *logger.ZapLogger
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	log := logger.NewZapLogger(cfg.LogFilePath, cfg.Environment == "production")

	var (
		sessions sessionstore.Store
		err      error
	)
	if cfg.SessionStore == "postgres" {
		sessions, err = sessionstore.NewPostgresStore(appCtx, cfg)
		if err != nil {
			return nil, err
		}
		log.Info("app", "postgres session store ready", nil)
	} else {
		sessions = sessionstore.NewMemoryStore(cfg.SessionTTL)
		log.Info("app", "in-memory session store ready", nil)
	}

	objClient, err := objectclient.NewS3Client(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info("app", "object client ready", nil)

	// One platform client for the whole process; handlers share it.
	adapter := platform.New(cfg, log)

	conversations := services.NewConversationService(adapter, sessions, log)
	indexes := services.NewContentIndexService(adapter, sessions, log, cfg.IndexPollInterval, cfg.IndexPollTimeout)
	importer := services.NewFileImportService(objClient, adapter, cfg.BucketName, log)
	dispatch := services.NewDispatchService(adapter, log)

	server := NewServer(cfg, log, sessions, objClient, conversations, indexes, importer, dispatch)

	return &App{
		Sessions:     sessions,
		ObjectClient: objClient,
		Platform:     adapter,
		Server:       server,
		Logger:       log,
	}, nil
}

func (a *App) Close() {
	if a.Sessions != nil {
		_ = a.Sessions.Close()
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
}
