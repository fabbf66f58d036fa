package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/iudanet/petalsync/pkg/api"
)

// Pinger проверяет доступность хранилища
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler обрабатывает health check запросы
type HealthHandler struct {
	logger  *slog.Logger
	db      Pinger
	version string
}

// NewHealthHandler создает новый handler для health check
func NewHealthHandler(logger *slog.Logger, db Pinger, version string) *HealthHandler {
	return &HealthHandler{
		logger:  logger,
		db:      db,
		version: version,
	}
}

// Health обрабатывает GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		h.logger.Error("Health check failed", "error", err)
		writeJSON(w, h.logger, http.StatusServiceUnavailable, api.HealthResponse{Status: "unavailable", Version: h.version})
		return
	}
	writeJSON(w, h.logger, http.StatusOK, api.HealthResponse{Status: "ok", Version: h.version})
}
