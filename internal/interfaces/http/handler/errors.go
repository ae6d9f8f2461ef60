package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"storyboard-ai-api/internal/interfaces/http/dto"
	apperrors "storyboard-ai-api/pkg/errors"
	"storyboard-ai-api/pkg/logger"
)

var registerTagNameOnce sync.Once

// useWireFieldNames 校验错误中的字段名使用 json/uri 标签名
func useWireFieldNames() {
	registerTagNameOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "uri", "form"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return f.Name
		})
	})
}

// writeError 统一错误响应
func writeError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		dto.ErrorWithDetail(c, http.StatusBadRequest, "invalid parameter", &dto.ErrorDetail{
			ErrorCode: string(apperrors.CodeInvalidParam),
			Details:   formatValidationErrors(verrs),
		})
		return
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		if status >= http.StatusInternalServerError {
			logger.Error(c.Request.Context(), "request failed", err, "error_code", string(appErr.Code))
		}
		dto.ErrorWithDetail(c, status, appErr.Message, &dto.ErrorDetail{
			ErrorCode: string(appErr.Code),
			Details:   appErr.Detail,
		})
		return
	}

	logger.Error(c.Request.Context(), "unexpected error", err)
	dto.InternalError(c, "internal server error")
}

// bindJSON 绑定请求体；非校验类错误（JSON 语法/类型）转为参数错误
func bindJSON(c *gin.Context, req any) error {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return verrs
	}
	return apperrors.InvalidParam("body", "malformed JSON")
}

// bindSessionID 解析并校验路径中的会话 UUID
func bindSessionID(c *gin.Context) (string, error) {
	var req dto.SessionIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		return "", err
	}
	return req.SessionID, nil
}

func formatValidationErrors(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Field()+": "+describeFieldError(fe))
	}
	return strings.Join(msgs, "; ")
}

func describeFieldError(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if isString {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if isString {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "url", "http_url":
		return "must be a valid URL"
	case "uuid":
		return "must be a valid UUID"
	default:
		return "failed on the '" + fe.Tag() + "' rule"
	}
}
