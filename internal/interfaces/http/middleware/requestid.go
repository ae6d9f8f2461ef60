package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storyboard-ai-api/pkg/logger"
)

// RequestIDHeader 请求 ID 的请求头与响应头
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLen = 128

// RequestID 沿用调用方的请求 ID，缺失或不合法时生成新的 UUID
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
		}

		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		// 会话事件从 context 读取 request_id
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), logger.RequestIDKey, id))

		c.Next()
	}
}

// validRequestID 仅接受可打印 ASCII，防止日志注入
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
