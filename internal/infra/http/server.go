package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"telegram-ad-moderation/internal/config"
	"telegram-ad-moderation/internal/infra/metrics"
	"telegram-ad-moderation/internal/usecase"
)

// Server answers hosting-platform liveness probes and serves the admin API.
type Server struct {
	cfg        config.HTTPConfig
	moderation usecase.ModerationUseCase
	auth       *AuthManager
	log        *zerolog.Logger
	server     *http.Server
}

func NewServer(cfg config.HTTPConfig, admin config.AdminConfig, moderation usecase.ModerationUseCase, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "http").Logger()
	return &Server{
		cfg:        cfg,
		moderation: moderation,
		auth:       NewAuthManager(admin.APIKey, admin.JWTSecret, admin.TokenTTL),
		log:        &l,
	}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID, RequestLog(s.log), Recover(s.log), Timeout(s.cfg.RequestTimeout), middleware.GetHead)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeText(w, http.StatusOK, "Bot is running")
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeText(w, http.StatusOK, "OK")
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	if s.auth.Enabled() {
		r.Route("/api/v1", func(r chi.Router) {
			r.Post("/auth/token", s.handleToken)
			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Get("/queue", s.handleQueue)
				r.Get("/submissions/{id}", s.handleGetSubmission)
				r.Post("/submissions/{id}/decision", s.handleDecision)
			})
		})
	}
	return r
}

// Start blocks until the server stops; a clean Shutdown returns nil.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      s.cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.log.Info().Str("addr", s.server.Addr).Bool("admin_api", s.auth.Enabled()).Msg("http server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
