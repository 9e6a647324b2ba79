package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rentledger/backend/internal/infrastructure/persistence"
	"github.com/rentledger/backend/internal/infrastructure/scheduler"
	"github.com/rentledger/backend/internal/interfaces/http/dto"
)

// SystemHandler handles health and operational endpoints
type SystemHandler struct {
	BaseHandler
	db        *persistence.Database
	sweeper   *scheduler.OverdueSweeper
	startTime time.Time
	version   string
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(db *persistence.Database, sweeper *scheduler.OverdueSweeper, version string) *SystemHandler {
	if version == "" {
		version = "dev"
	}
	return &SystemHandler{
		db:        db,
		sweeper:   sweeper,
		startTime: time.Now(),
		version:   version,
	}
}

// HealthResponse represents the health check payload
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
	Database string `json:"database"`
}

// Health godoc
// @Summary      Health check
// @Description  Reports service and database health
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=handler.HealthResponse}
// @Failure      503 {object} dto.Response{data=handler.HealthResponse}
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:   "ok",
		Version:  h.version,
		Uptime:   time.Since(h.startTime).Round(time.Second).String(),
		Database: "up",
	}

	status := http.StatusOK
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			resp.Status = "degraded"
			resp.Database = "down"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, dto.NewSuccessResponse(resp))
}

// Ping godoc
// @Summary      Liveness probe
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response
// @Router       /ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, gin.H{"message": "pong"})
}

// TriggerOverdueSweep godoc
// @Summary      Trigger an overdue sweep
// @Description  Runs the overdue marking pass immediately instead of waiting for the next scheduled sweep
// @Tags         system
// @Produce      json
// @Success      202 {object} dto.Response
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/sweeps/overdue [post]
func (h *SystemHandler) TriggerOverdueSweep(c *gin.Context) {
	if h.sweeper == nil {
		h.Error(c, http.StatusConflict, dto.ErrCodeConflict, "Overdue sweeper is not enabled")
		return
	}

	if err := h.sweeper.TriggerSweep(c.Request.Context()); err != nil {
		h.Error(c, http.StatusConflict, dto.ErrCodeConflict, err.Error())
		return
	}

	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(gin.H{"message": "sweep triggered"}))
}
