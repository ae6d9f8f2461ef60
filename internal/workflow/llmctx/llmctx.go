// Package llmctx 在 context 中携带模型调用的阶段与提供商标签，供 Eino 回调打点
package llmctx

import (
	"context"
	"strings"
)

// Unknown 未设置标签时的取值
const Unknown = "unknown"

type labelKey struct{ name string }

var (
	workflowKey = labelKey{"workflow"}
	providerKey = labelKey{"provider"}
)

// WithWorkflowProvider 写入阶段名与提供商名，空值忽略
func WithWorkflowProvider(ctx context.Context, workflow, provider string) context.Context {
	return withLabel(withLabel(ctx, workflowKey, workflow), providerKey, provider)
}

// WorkflowFromContext 读取阶段名
func WorkflowFromContext(ctx context.Context) string {
	return labelFrom(ctx, workflowKey)
}

// ProviderFromContext 读取提供商名
func ProviderFromContext(ctx context.Context) string {
	return labelFrom(ctx, providerKey)
}

func withLabel(ctx context.Context, key labelKey, value string) context.Context {
	value = strings.TrimSpace(value)
	if ctx == nil || value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func labelFrom(ctx context.Context, key labelKey) string {
	if ctx == nil {
		return Unknown
	}
	if s, ok := ctx.Value(key).(string); ok && s != "" {
		return s
	}
	return Unknown
}
