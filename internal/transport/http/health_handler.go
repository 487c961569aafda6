package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// HealthHandler reports process liveness and basic runtime facts.
type HealthHandler struct {
	logger    *slog.Logger
	startedAt time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		logger:    logger.With(slog.String("component", "health_handler")),
		startedAt: time.Now(),
	}
}

// HealthCheck handles GET /healthz.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status":         "healthy",
		"version":        Version,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}
