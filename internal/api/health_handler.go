package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/languagesgo/stickerforge/internal/api/shared"
	"github.com/languagesgo/stickerforge/internal/cache"
)

// HealthResponse reports overall and per-component health.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// HealthHandler handles liveness probes.
type HealthHandler struct {
	db       *sql.DB
	statuses cache.Cache // optional, may be nil
	logger   *slog.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db *sql.DB, statuses cache.Cache, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		db:       db,
		statuses: statuses,
		logger:   logger.With(slog.String("component", "health_handler")),
	}
}

// Health handles GET /api/v1/health requests. Postgres is required for a
// healthy verdict; the Redis cache is optional and only degrades the report.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:     "ok",
		Components: map[string]string{},
	}
	status := http.StatusOK

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Error("database health check failed", "error", err)
		resp.Components["database"] = "unavailable"
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	} else {
		resp.Components["database"] = "ok"
	}

	if h.statuses != nil {
		if err := h.statuses.Ping(ctx); err != nil {
			h.logger.Warn("cache health check failed", "error", err)
			resp.Components["cache"] = "unavailable"
			if resp.Status == "ok" {
				resp.Status = "degraded"
			}
		} else {
			resp.Components["cache"] = "ok"
		}
	}

	shared.RespondWithJSON(w, r, status, resp)
}
