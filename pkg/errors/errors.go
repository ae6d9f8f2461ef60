// Package errors 提供统一的错误定义
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeNotFound           ErrorCode = "1004"
	CodeConflict           ErrorCode = "1005"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"

	// 会话错误 (3xxx)
	CodeSessionNotFound ErrorCode = "3001"
	CodeSessionBusy     ErrorCode = "3002"
	CodeVersionConflict ErrorCode = "3003"
	CodeEmptyStory      ErrorCode = "3004"

	// 生成阶段错误 (4xxx)
	CodeGenerationFailed        ErrorCode = "4001"
	CodeRefinementFailed        ErrorCode = "4002"
	CodeStyleGenerationFailed   ErrorCode = "4003"
	CodeImageGenerationFailed   ErrorCode = "4004"
	CodePromptRefinementFailed  ErrorCode = "4005"
	CodeConsistencyPromptFailed ErrorCode = "4006"
	CodeSceneImageFailed        ErrorCode = "4007"

	// 外部服务错误 (5xxx)
	CodeDatabaseError    ErrorCode = "5001"
	CodeCacheError       ErrorCode = "5002"
	CodeLLMProviderError ErrorCode = "5005"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg = msg + " (" + e.Detail + ")"
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail 添加详细信息
func (e *AppError) WithDetail(detail string) *AppError {
	e.Detail = detail
	return e
}

// WithError 添加底层错误
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam:
		return http.StatusBadRequest
	case CodeNotFound, CodeSessionNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeSessionBusy, CodeVersionConflict:
		return http.StatusConflict
	case CodeEmptyStory:
		return http.StatusUnprocessableEntity
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IsAppError 检查是否为 AppError（支持包装链）
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}

// HasCode 判断错误链上是否存在指定错误码
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}

// InvalidParam 创建参数校验错误
func InvalidParam(field, reason string) *AppError {
	return New(CodeInvalidParam, "invalid parameter").WithDetail(field + ": " + reason)
}

// SessionNotFound 创建会话不存在错误
func SessionNotFound(sessionID string) *AppError {
	return New(CodeSessionNotFound, "session not found").WithDetail("session " + sessionID)
}
