package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"slabdesk/internal/activity"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Check reports the health of one dependency.
type Check func(ctx context.Context) error

// StatsSource exposes projection counts and connectivity.
type StatsSource interface {
	Stats(ctx context.Context) (*activity.Stats, error)
	Ping(ctx context.Context) error
}

// DatabaseStatusResponse is the body of the database status endpoint.
type DatabaseStatusResponse struct {
	Status   string `json:"status" example:"ok"`
	Database struct {
		Connected bool   `json:"connected"`
		Type      string `json:"type" example:"sqlite"`
	} `json:"database"`
}

// StatsResponse is the body of the stats endpoint.
type StatsResponse struct {
	Status string         `json:"status" example:"ok"`
	Stats  activity.Stats `json:"stats"`
}

type MonitoringHandler struct {
	service string
	checks  map[string]Check
	db      StatsSource
	logger  *zap.Logger
}

// NewMonitoringHandler builds the health endpoints of service. db may be
// nil when the process has no activity database.
func NewMonitoringHandler(service string, checks map[string]Check, db StatsSource, logger *zap.Logger) *MonitoringHandler {
	return &MonitoringHandler{
		service: service,
		checks:  checks,
		db:      db,
		logger:  logger,
	}
}

// Health godoc
// @Summary      Health check endpoint
// @Description  Runs every registered dependency check. Any failure turns the status into degraded.
// @Tags         health
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Failure      503  {object}  HealthResponse
// @Router       /health [get]
func (h *MonitoringHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	resp := HealthResponse{
		Status:    "healthy",
		Service:   h.service,
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]string, len(names)),
	}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.Warn("Health check failed", zap.String("check", name), zap.Error(err))
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	c.JSON(status, resp)
}

// GetStats godoc
// @Summary      Projection statistics
// @Tags         monitoring
// @Produce      json
// @Success      200  {object}  StatsResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /monitoring/stats [get]
func (h *MonitoringHandler) GetStats(c *gin.Context) {
	stats, err := h.db.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get statistics", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "DatabaseError", Message: "failed to get statistics"})
		return
	}
	c.JSON(http.StatusOK, StatsResponse{Status: "ok", Stats: *stats})
}

// GetDatabaseStatus godoc
// @Summary      Database status
// @Tags         monitoring
// @Produce      json
// @Success      200  {object}  DatabaseStatusResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /monitoring/database/status [get]
func (h *MonitoringHandler) GetDatabaseStatus(c *gin.Context) {
	if err := h.db.Ping(c.Request.Context()); err != nil {
		h.logger.Error("Database ping failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "DatabaseError", Message: "database connection failed"})
		return
	}

	response := DatabaseStatusResponse{Status: "ok"}
	response.Database.Connected = true
	response.Database.Type = "sqlite"
	c.JSON(http.StatusOK, response)
}
