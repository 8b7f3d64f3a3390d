// Package api exposes the HTTP surface of the service.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/ory/herodot"

	"docmatch/internal/apperrors"
	"docmatch/internal/auth"
	"docmatch/internal/config"
	"docmatch/internal/storage"
)

// EmbedderInterface is the embedding capability injected into the server.
type EmbedderInterface interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Server struct {
	mux      *http.ServeMux
	store    storage.Store
	embedder EmbedderInterface
	writer   *herodot.JSONWriter
	logger   *slog.Logger

	threshold      float64
	initialCredits int
	jwtSecret      []byte
	tokenTTL       time.Duration
}

func NewServer(store storage.Store, embedder EmbedderInterface, cfg *config.Config, logger *slog.Logger) *Server {
	s := &Server{
		mux:            http.NewServeMux(),
		store:          store,
		embedder:       embedder,
		writer:         herodot.NewJSONWriter(nil),
		logger:         logger,
		threshold:      cfg.Similarity.Threshold,
		initialCredits: cfg.Credits.Initial,
		jwtSecret:      []byte(cfg.Auth.JWTSecret),
		tokenTTL:       cfg.TokenTTL(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("POST /auth/register", s.register)
	s.mux.HandleFunc("POST /auth/login", s.login)
	s.mux.HandleFunc("GET /user/profile", s.profile)
	s.mux.HandleFunc("POST /credits/request", s.requestCredits)
	s.mux.Handle("GET /credits/pending", auth.RequireAdmin(s.jwtSecret, http.HandlerFunc(s.pendingRequests)))
	s.mux.HandleFunc("POST /admin/credits/update", s.approveCredits)
	s.mux.HandleFunc("POST /scan", s.scan)
	s.mux.HandleFunc("GET /matches/{docId}", s.matches)
	s.mux.HandleFunc("GET /admin/analytics", s.analytics)
	s.mux.HandleFunc("GET /health", s.healthCheck)
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.loggingMiddleware(s.mux)
}

func (s *Server) Run(addr string, readTimeout, writeTimeout time.Duration) error {
	s.logger.Info("server starting", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	return srv.ListenAndServe()
}

// writeError logs the failure and renders it through the taxonomy mapping.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var provErr *apperrors.ProviderError
	var storeErr *apperrors.StorageError
	if errors.As(err, &provErr) || errors.As(err, &storeErr) {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}

	s.writer.WriteError(w, r, apperrors.ToHTTP(err))
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		s.logger.Info("request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}
