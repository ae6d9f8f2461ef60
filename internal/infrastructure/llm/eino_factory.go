// Package llm 提供 Eino ChatModel 的构建与缓存
package llm

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"storyboard-ai-api/internal/config"
	workflowport "storyboard-ai-api/internal/workflow/port"
)

const (
	providerTypeOpenAI = "openai"
	providerTypeArk    = "ark"
)

// EinoFactory 管理多个 Eino ChatModel 客户端实例
type EinoFactory struct {
	config *config.LLMConfig
	models map[string]model.BaseChatModel
	mu     sync.RWMutex
}

// NewEinoFactory 创建 Eino LLM 工厂
func NewEinoFactory(cfg *config.Config) *EinoFactory {
	return &EinoFactory{
		config: &cfg.LLM,
		models: make(map[string]model.BaseChatModel),
	}
}

// Get 获取指定名称的文本 ChatModel，如果未指定则返回默认客户端
func (f *EinoFactory) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	return f.get(ctx, f.ProviderName(name), false)
}

// GetVision 获取多模态 ChatModel（未配置 vision_model 时退回文本模型）
func (f *EinoFactory) GetVision(ctx context.Context, name string) (model.BaseChatModel, error) {
	return f.get(ctx, f.ProviderName(name), true)
}

// ProviderName 解析提供商名称
func (f *EinoFactory) ProviderName(name string) string {
	if name == "" {
		return f.config.DefaultProvider
	}
	return name
}

func (f *EinoFactory) get(ctx context.Context, name string, vision bool) (model.BaseChatModel, error) {
	providerCfg, ok := f.config.Providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %s not found in LLM config", name)
	}

	modelName := providerCfg.Model
	if vision && providerCfg.VisionModel != "" {
		modelName = providerCfg.VisionModel
	}
	key := name + "/" + modelName

	f.mu.RLock()
	m, ok := f.models[key]
	f.mu.RUnlock()
	if ok {
		return m, nil
	}

	// 惰性加载
	f.mu.Lock()
	defer f.mu.Unlock()

	if m, ok = f.models[key]; ok {
		return m, nil
	}

	chatModel, err := newChatModel(ctx, providerCfg, modelName)
	if err != nil {
		return nil, fmt.Errorf("failed to create eino chat model for %s: %w", name, err)
	}

	f.models[key] = chatModel
	return chatModel, nil
}

func newChatModel(ctx context.Context, cfg config.ProviderConfig, modelName string) (model.BaseChatModel, error) {
	var maxTokens *int
	if cfg.MaxTokens > 0 {
		maxTokens = &cfg.MaxTokens
	}
	temperature := float32(cfg.Temperature)

	switch cfg.Type {
	case "", providerTypeOpenAI:
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       modelName,
			MaxTokens:   maxTokens,
			Temperature: &temperature,
			Timeout:     cfg.Timeout,
		})
	case providerTypeArk:
		arkCfg := &ark.ChatModelConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       modelName,
			MaxTokens:   maxTokens,
			Temperature: &temperature,
		}
		if cfg.Timeout > 0 {
			arkCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
		}
		return ark.NewChatModel(ctx, arkCfg)
	default:
		return nil, fmt.Errorf("unsupported provider type %q", cfg.Type)
	}
}

var _ workflowport.ChatModelFactory = (*EinoFactory)(nil)
