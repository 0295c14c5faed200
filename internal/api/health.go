package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/aifriend/internal/config"
	"github.com/ashureev/aifriend/internal/store"
	"github.com/go-chi/chi/v5"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	repo    store.Repository
	cfg     *config.Config
	timeout time.Duration
}

// NewHealthHandler creates a new health handler with configuration.
func NewHealthHandler(repo store.Repository, cfg *config.Config) *HealthHandler {
	return &HealthHandler{repo: repo, cfg: cfg, timeout: 5 * time.Second}
}

// Health reports the running mode and whether history storage is reachable.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := map[string]interface{}{
		"status":         "ok",
		"api_configured": h.cfg.RemoteEnabled(),
		"mode":           h.cfg.Mode(),
		"checks":         checks,
	}
	statusCode := http.StatusOK

	if err := h.repo.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		checks["history"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["history"] = "ok"
	}

	JSON(w, statusCode, status)
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
