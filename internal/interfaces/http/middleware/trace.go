package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"storyboard-ai-api/internal/interfaces/http/dto"
	"storyboard-ai-api/pkg/logger"
)

const (
	sessionIDKey  = "session_id"
	traceIDHeader = "X-Trace-ID"
)

// Trace 为每个请求创建 server span
func Trace(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// TraceContext 把 trace/span ID 与路径中的 sessionId 写入日志上下文；未开启追踪时只处理 sessionId
func TraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		span := trace.SpanFromContext(ctx)

		if sc := span.SpanContext(); sc.IsValid() {
			traceID := sc.TraceID().String()
			c.Set(dto.TraceIDKey, traceID)
			c.Header(traceIDHeader, traceID)
			ctx = logger.WithContext(ctx, logger.TraceIDKey, traceID)
			ctx = logger.WithContext(ctx, logger.SpanIDKey, sc.SpanID().String())
		}

		if sid := c.Param("sessionId"); sid != "" {
			c.Set(sessionIDKey, sid)
			ctx = logger.WithContext(ctx, logger.SessionIDKey, sid)
			span.SetAttributes(attribute.String("session.id", sid))
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
