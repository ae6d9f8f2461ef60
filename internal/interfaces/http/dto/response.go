// Package dto HTTP 层请求与响应结构
package dto

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// TraceIDKey gin.Context 中保存 trace id 的键，由追踪中间件写入
const TraceIDKey = "trace_id"

// Response 成功响应信封
type Response[T any] struct {
	Code    int       `json:"code"`
	Message string    `json:"message"`
	Data    T         `json:"data,omitempty"`
	Meta    *PageMeta `json:"meta,omitempty"`
	TraceID string    `json:"trace_id,omitempty"`
}

// PageMeta 列表接口的分页信息
type PageMeta struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPageMeta total 为 0 时 TotalPages 也为 0
func NewPageMeta(page, pageSize, total int) *PageMeta {
	meta := &PageMeta{Page: page, PageSize: pageSize, Total: total}
	if pageSize > 0 {
		meta.TotalPages = (total + pageSize - 1) / pageSize
	}
	return meta
}

// ErrorDetail 业务错误码与可读说明
type ErrorDetail struct {
	ErrorCode string `json:"error_code,omitempty"`
	Details   string `json:"details,omitempty"`
}

// ErrorResponse 失败响应信封
type ErrorResponse struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Error   *ErrorDetail `json:"error,omitempty"`
	TraceID string       `json:"trace_id,omitempty"`
}

func respond[T any](c *gin.Context, status int, message string, data T, meta *PageMeta) {
	c.JSON(status, Response[T]{
		Code:    status,
		Message: message,
		Data:    data,
		Meta:    meta,
		TraceID: c.GetString(TraceIDKey),
	})
}

// Success 200
func Success[T any](c *gin.Context, data T) {
	respond(c, http.StatusOK, "success", data, nil)
}

// SuccessWithPage 200，附带分页信息
func SuccessWithPage[T any](c *gin.Context, data T, meta *PageMeta) {
	respond(c, http.StatusOK, "success", data, meta)
}

// Created 201
func Created[T any](c *gin.Context, data T) {
	respond(c, http.StatusCreated, "created", data, nil)
}

// ErrorWithDetail 写出错误响应；detail 可为 nil
func ErrorWithDetail(c *gin.Context, status int, message string, detail *ErrorDetail) {
	c.JSON(status, ErrorResponse{
		Code:    status,
		Message: message,
		Error:   detail,
		TraceID: c.GetString(TraceIDKey),
	})
}

// InternalError 500，不透出内部原因
func InternalError(c *gin.Context, message string) {
	ErrorWithDetail(c, http.StatusInternalServerError, message, nil)
}
