// Package middleware gin 中间件：恢复、请求 ID、跨域、追踪、指标与审计日志
package middleware

import (
	"fmt"
	"io"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"storyboard-ai-api/internal/interfaces/http/dto"
	"storyboard-ai-api/pkg/errors"
	"storyboard-ai-api/pkg/logger"
)

// Recovery 捕获 panic，记录堆栈后返回统一的 500 响应
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		logger.Error(c.Request.Context(), "panic recovered",
			fmt.Errorf("%v", recovered),
			"route", c.FullPath(),
			"method", c.Request.Method,
			"stack", string(debug.Stack()),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "internal server error",
			Error:   &dto.ErrorDetail{ErrorCode: string(errors.CodeInternalError)},
			TraceID: c.GetString(dto.TraceIDKey),
		})
	})
}
