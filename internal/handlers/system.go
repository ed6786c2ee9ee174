package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Jeremieon/todo-api-cicd/internal/config"
	"github.com/Jeremieon/todo-api-cicd/internal/dto"
	"github.com/Jeremieon/todo-api-cicd/internal/logger"

	"github.com/gin-gonic/gin"
)

// Pinger runs a trivial round trip against a backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

const healthProbeTimeout = 2 * time.Second

// SystemHandler serves the root, health and info endpoints.
type SystemHandler struct {
	app     config.AppConfig
	db      Pinger
	cache   Pinger // nil when caching is disabled
	started time.Time
	log     *slog.Logger
	now     func() time.Time
}

func NewSystemHandler(app config.AppConfig, db, cache Pinger, started time.Time, log *slog.Logger) *SystemHandler {
	return &SystemHandler{app: app, db: db, cache: cache, started: started, log: log, now: time.Now}
}

// Root godoc
// @Summary  Service banner
// @Tags     system
// @Produce  json
// @Success  200  {object}  dto.RootResponse
// @Router   / [get]
func (h *SystemHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, dto.RootResponse{
		Message:     "Todo API v" + h.app.Version,
		App:         h.app.Name,
		Environment: h.app.Env,
		Status:      "running",
	})
}

// Health godoc
// @Summary  Liveness and database connectivity
// @Tags     system
// @Produce  json
// @Success  200  {object}  dto.HealthResponse
// @Failure  503  {object}  dto.ErrorResponse
// @Router   /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthProbeTimeout)
	defer cancel()

	log := logger.FromContext(ctx, h.log)
	if err := h.db.Ping(ctx); err != nil {
		log.ErrorContext(ctx, "health check: database probe failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Detail: "database unavailable"})
		return
	}

	resp := dto.HealthResponse{
		Status:      "healthy",
		Environment: h.app.Env,
		Version:     h.app.Version,
		Uptime:      int64(h.now().Sub(h.started) / time.Second),
		Database:    "connected",
	}
	if h.cache != nil {
		resp.Cache = "connected"
		if err := h.cache.Ping(ctx); err != nil {
			log.WarnContext(ctx, "health check: cache probe failed", "error", err)
			resp.Cache = "unavailable"
		}
	}
	c.JSON(http.StatusOK, resp)
}

// Info godoc
// @Summary  Static settings snapshot
// @Tags     system
// @Produce  json
// @Success  200  {object}  config.Info
// @Router   /api/info [get]
func (h *SystemHandler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, h.app.Info())
}
