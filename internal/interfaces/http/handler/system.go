package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/repoflow/backend/internal/infrastructure/logger"
	"github.com/repoflow/backend/internal/infrastructure/persistence"
	"github.com/repoflow/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// healthCheckTimeout bounds the database round trip made by /health
const healthCheckTimeout = 2 * time.Second

// DatabaseChecker is the slice of the database the health check needs
type DatabaseChecker interface {
	PingContext(ctx context.Context) error
	Stats() (persistence.PoolStats, error)
}

// SystemHandler handles system-related API endpoints
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	db        DatabaseChecker
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler. db may be nil, in which
// case /health reports the process only.
func NewSystemHandler(name, version string, db DatabaseChecker) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		db:        db,
		startTime: time.Now(),
	}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status   string                 `json:"status"`
	Database string                 `json:"database,omitempty"`
	Pool     *persistence.PoolStats `json:"pool,omitempty"`
}

// Health reports liveness plus database reachability.
// 200 {"status":"ok"} when the database answers a ping, 503 otherwise.
func (h *SystemHandler) Health(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		logger.FromContext(c.Request.Context()).Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Database: "unreachable"})
		return
	}

	resp := HealthResponse{Status: "ok", Database: "ok"}
	if stats, err := h.db.Stats(); err == nil {
		resp.Pool = &stats
	}
	c.JSON(http.StatusOK, resp)
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// GetSystemInfo handles GET /api/v1/system/info
//
//	@Summary	Service name, version and uptime
//	@Tags		system
//	@Produce	json
//	@Success	200	{object}	SystemInfoResponse
//	@Router		/system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(info))
}

// PingResponse represents the ping response
type PingResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Ping handles GET /api/v1/system/ping
//
//	@Summary	Liveness ping
//	@Tags		system
//	@Produce	json
//	@Success	200	{object}	PingResponse
//	@Router		/system/ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	response := PingResponse{
		Message:   "pong",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}
