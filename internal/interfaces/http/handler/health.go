package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"storyboard-ai-api/internal/infrastructure/persistence/postgres"
	"storyboard-ai-api/internal/infrastructure/persistence/redis"
)

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	db      healthChecker
	redis   healthChecker
	version string
}

// NewHealthHandler 创建健康检查处理器，redisClient 为 nil 表示未启用 Redis
func NewHealthHandler(db *postgres.Client, redisClient *redis.Client, version string) *HealthHandler {
	h := &HealthHandler{version: version}
	if db != nil {
		h.db = db
	}
	if redisClient != nil {
		h.redis = redisClient
	}
	return h
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 健康检查接口
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: h.version,
	})
}

// Ready 就绪检查接口：数据库必需，Redis 仅在启用时检查
// @Summary 就绪检查
// @Tags System
// @Produce json
// @Success 200 {object} readinessResponse
// @Failure 503 {object} readinessResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]*readinessCheck{}
	ready := true

	if h.db == nil {
		checks["database"] = &readinessCheck{Status: "missing", Error: "database client not configured"}
		ready = false
	} else {
		checks["database"] = runCheck(ctx, h.db)
		ready = ready && checks["database"].Status == "ok"
	}

	if h.redis == nil {
		checks["redis"] = &readinessCheck{Status: "disabled"}
	} else {
		checks["redis"] = runCheck(ctx, h.redis)
		ready = ready && checks["redis"].Status == "ok"
	}

	resp := readinessResponse{Status: "ok", Checks: checks}
	if !ready {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Live 存活检查接口
// @Summary 存活检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func runCheck(ctx context.Context, checker healthChecker) *readinessCheck {
	start := time.Now()
	err := checker.HealthCheck(ctx)
	check := &readinessCheck{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		check.Status = "error"
		check.Error = err.Error()
	}
	return check
}
