// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"storyboard-ai-api/internal/config"
	"storyboard-ai-api/internal/interfaces/http/handler"
	"storyboard-ai-api/internal/interfaces/http/middleware"
)

// RouterHandlers 路由依赖的处理器集合
type RouterHandlers struct {
	Health *handler.HealthHandler
	Story  *handler.StoryHandler
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	cfg      *config.Config
	handlers *RouterHandlers
}

// NewWithDeps 使用处理器集合创建路由器
func NewWithDeps(cfg *config.Config, handlers *RouterHandlers) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine:   gin.New(),
		cfg:      cfg,
		handlers: handlers,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置中间件
func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	r.engine.Use(middleware.CORS(r.cfg.Security.CORS))

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
	}
	// 未启用追踪时仍需注入 session_id
	r.engine.Use(middleware.TraceContext())

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}

	r.engine.Use(middleware.AuditWithConfig(middleware.AuditConfig{
		Enabled:   true,
		SkipPaths: middleware.DefaultAuditSkipPaths,
	}))
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	r.engine.GET("/health", r.handlers.Health.Health)
	r.engine.GET("/ready", r.handlers.Health.Ready)
	r.engine.GET("/live", r.handlers.Health.Live)

	if r.cfg.Observability.Metrics.Enabled {
		path := r.cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.engine.GET(path, gin.WrapH(promhttp.Handler()))
	}

	RegisterV1Routes(r.engine.Group("/v1"), r.handlers.Story)
}
