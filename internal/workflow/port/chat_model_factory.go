package port

import (
	"context"

	"github.com/cloudwego/eino/components/model"
)

// ChatModelFactory 定义工作流层对 LLM ChatModel 的最小依赖（port）。
// name 为空时使用默认提供商。
type ChatModelFactory interface {
	Get(ctx context.Context, name string) (model.BaseChatModel, error)
	// GetVision 返回支持图片输入的模型
	GetVision(ctx context.Context, name string) (model.BaseChatModel, error)
	// ProviderName 解析实际使用的提供商名称（用于指标与日志）
	ProviderName(name string) string
}
