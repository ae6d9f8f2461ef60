package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"storyboard-ai-api/internal/config"
)

// CORS 跨域配置；服务不做鉴权，因此不允许携带凭证
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     orDefault(cfg.AllowedOrigins, "*"),
		AllowMethods:     orDefault(cfg.AllowedMethods, "GET", "POST", "OPTIONS"),
		AllowHeaders:     orDefault(cfg.AllowedHeaders, "Origin", "Content-Type", RequestIDHeader),
		ExposeHeaders:    []string{RequestIDHeader, traceIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	})
}

func orDefault(values []string, fallback ...string) []string {
	if len(values) == 0 {
		return fallback
	}
	return values
}
