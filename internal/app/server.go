package app

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/markdave123-py/Conversa/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/Conversa/internal/api/middlewares"
	"github.com/markdave123-py/Conversa/internal/config"
	objectclient "github.com/markdave123-py/Conversa/internal/core/object-client"
	sessionstore "github.com/markdave123-py/Conversa/internal/core/session-store"
	"github.com/markdave123-py/Conversa/internal/pkg/logger"
	"github.com/markdave123-py/Conversa/internal/services"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(
	cfg *config.Config,
	lg logger.ILogger,
	sessions sessionstore.Store,
	objects objectclient.ObjectClient,
	conversations *services.ConversationService,
	indexes *services.ContentIndexService,
	importer *services.FileImportService,
	dispatch *services.DispatchService,
) *Server {
	uploadHandler := handlers.NewUploadHandler(sessions, objects, importer, indexes, conversations, cfg, lg)
	chatHandler := handlers.NewChatHandler(sessions, conversations, dispatch, lg)
	conversationHandler := handlers.NewConversationHandler(sessions, conversations, lg)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	// No global timeout: the streaming and indexing-wait endpoints own
	// their budgets and must outlive a blanket 60s cap.

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CorsAllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// API routes
	r.Route("/api", func(api chi.Router) {
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWTMiddleware)

			protected.Post("/files/upload", uploadHandler.Upload)
			protected.Post("/files/presign", uploadHandler.Presign)
			protected.Post("/files/ingest", uploadHandler.Ingest)

			protected.Post("/chat/send", chatHandler.Send)
			protected.Post("/chat/stream", chatHandler.Stream)

			protected.Get("/conversation", conversationHandler.Current)
			protected.Post("/conversation/reset", conversationHandler.Reset)
		})
	})

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Server{httpServer: httpSrv}
}

// Start runs the HTTP server.
func (s *Server) Start() {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
