package dto

import "github.com/gin-gonic/gin"

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PageRequest 列表查询参数
type PageRequest struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// BindPage 读取 page/page_size；缺失、非数字或越界的值回落到默认值
func BindPage(c *gin.Context) PageRequest {
	var req PageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		req = PageRequest{}
	}
	if req.Page < 1 {
		req.Page = 1
	}
	switch {
	case req.PageSize < 1:
		req.PageSize = defaultPageSize
	case req.PageSize > maxPageSize:
		req.PageSize = maxPageSize
	}
	return req
}

// SessionIDRequest 路径参数 sessionId
type SessionIDRequest struct {
	SessionID string `uri:"sessionId" binding:"required,uuid"`
}
