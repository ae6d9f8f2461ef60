package middleware

import (
	"log/slog"
	"slices"
	"time"

	"github.com/gin-gonic/gin"

	"storyboard-ai-api/pkg/logger"
)

// AuditConfig 访问日志配置
type AuditConfig struct {
	Enabled   bool
	SkipPaths []string
}

// DefaultAuditSkipPaths 探针与指标接口不记访问日志
var DefaultAuditSkipPaths = []string{"/health", "/ready", "/live", "/metrics"}

// AuditWithConfig 每个请求结束后记录一条访问日志，5xx 记为 ERROR，4xx 记为 WARN
func AuditWithConfig(cfg AuditConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	skip := slices.Clone(cfg.SkipPaths)

	return func(c *gin.Context) {
		if slices.Contains(skip, c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"route", c.FullPath(),
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
			"body_size", c.Writer.Size(),
		}
		if sid := c.GetString(sessionIDKey); sid != "" {
			attrs = append(attrs, "session_id", sid)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		logger.Log(c.Request.Context(), level, "http access", attrs...)
	}
}
