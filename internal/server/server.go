// Package server собирает HTTP сервер синхронизации: роутер, middleware и жизненный цикл.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/iudanet/petalsync/internal/server/handlers"
	"github.com/iudanet/petalsync/internal/server/middleware"
	"github.com/iudanet/petalsync/internal/server/storage"
)

const shutdownTimeout = 10 * time.Second

// Options параметры сервера
type Options struct {
	Addr    string
	Version string
	// Validator проверяет bearer токены; nil отключает проверку
	Validator middleware.TokenValidator
	// RateLimit запросов в минуту на клиента; 0 - без ограничения
	RateLimit int
}

// Server HTTP сервер синхронизации
type Server struct {
	http    *http.Server
	limiter *middleware.RateLimiter
	logger  *slog.Logger
}

// New создает сервер поверх store
func New(opts Options, store storage.RecordStorage, logger *slog.Logger) *Server {
	s := &Server{logger: logger}
	if opts.RateLimit > 0 {
		s.limiter = middleware.NewRateLimiter(opts.RateLimit, time.Minute, logger)
	}

	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(opts, store),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Handler returns the root handler, used by tests with httptest.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) routes(opts Options, store storage.RecordStorage) http.Handler {
	syncHandler := handlers.NewSyncHandler(s.logger, store)
	healthHandler := handlers.NewHealthHandler(s.logger, store, opts.Version)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RecoveryMiddleware(s.logger))
	r.Use(middleware.LoggingWithSkip(s.logger, []string{"/health"}))

	r.Get("/health", healthHandler.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(s.logger, opts.Validator))
		if s.limiter != nil {
			r.Use(s.limiter.Middleware)
		}

		r.Post("/sync", syncHandler.Push)
		r.Get("/sync", syncHandler.Snapshot)
		r.Get("/admin/pull", syncHandler.Pull)
	})

	return r
}

// Run слушает адрес и блокируется до отмены ctx, затем плавно останавливает сервер.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve обслуживает ln до отмены ctx.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server started", "addr", ln.Addr().String())
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.stopLimiter()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("Server stopped")
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopLimiter()
	return s.http.Shutdown(ctx)
}

func (s *Server) stopLimiter() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}
