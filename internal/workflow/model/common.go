package model

import (
	"time"

	"github.com/cloudwego/eino/schema"
)

type LLMUsageMeta struct {
	Provider         string
	Model            string
	PromptTokens     int
	CompletionTokens int
	GeneratedAt      time.Time
}

// UsageFromMessage 从模型响应中提取 token 用量
func UsageFromMessage(provider, model string, msg *schema.Message) LLMUsageMeta {
	meta := LLMUsageMeta{
		Provider:    provider,
		Model:       model,
		GeneratedAt: time.Now(),
	}
	if msg != nil && msg.ResponseMeta != nil && msg.ResponseMeta.Usage != nil {
		meta.PromptTokens = msg.ResponseMeta.Usage.PromptTokens
		meta.CompletionTokens = msg.ResponseMeta.Usage.CompletionTokens
	}
	return meta
}
