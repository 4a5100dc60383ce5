// Package healthcheck serves liveness, readiness and metrics endpoints.
package healthcheck

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/lead-outreach-service/internal/storage"
	"gitlab.com/timkado/api/lead-outreach-service/pkg/utils"
)

// readyTimeout bounds the database ping behind /ready.
const readyTimeout = 2 * time.Second

// HealthResponse is the response structure for health check endpoints
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// Handler registers /health, /ready and, when set, /metrics.
type Handler struct {
	db      storage.HealthChecker
	metrics http.Handler
	version string
	logger  *zap.Logger
}

// NewHandler creates a health check handler. metrics may be nil.
func NewHandler(db storage.HealthChecker, metrics http.Handler, version string, logger *zap.Logger) *Handler {
	return &Handler{db: db, metrics: metrics, version: version, logger: logger}
}

// Register adds the endpoints to e.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/health", h.handleHealth)
	e.GET("/ready", h.handleReady)
	if h.metrics != nil {
		h.logger.Info("Registering /metrics endpoint")
		e.GET("/metrics", echo.WrapHandler(h.metrics))
	}
}

// handleHealth handles the /health endpoint for liveness probes
func (h *Handler) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "UP",
		Version: h.version,
	})
}

// handleReady handles the /ready endpoint for readiness probes.
// It reports 503 while the database is unreachable.
func (h *Handler) handleReady(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readyTimeout)
	defer cancel()

	details := map[string]string{
		"timestamp": utils.FormatISO8601(utils.Now()),
		"database":  "ok",
	}
	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("Readiness check failed", zap.Error(err))
		details["database"] = "unreachable"
		return c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "NOT_READY", Details: details})
	}
	return c.JSON(http.StatusOK, HealthResponse{Status: "READY", Details: details})
}
