// Package imagegen 提供图像生成提供商实现
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	workflowport "storyboard-ai-api/internal/workflow/port"
)

// ErrNoImage 提供商未返回可用图片
var ErrNoImage = errors.New("no image returned")

// OpenAIGenerator 基于 OpenAI Images API 的生成器
type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	size    string
	quality string
}

// OpenAIOptions OpenAI 生成器参数
type OpenAIOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	Size       string
	Quality    string
	HTTPClient *http.Client
}

// NewOpenAIGenerator 创建 OpenAI 图像生成器
func NewOpenAIGenerator(opts OpenAIOptions) *OpenAIGenerator {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}
	if opts.Model == "" {
		opts.Model = openai.CreateImageModelDallE3
	}
	if opts.Size == "" {
		opts.Size = openai.CreateImageSize1024x1024
	}
	return &OpenAIGenerator{
		client:  openai.NewClientWithConfig(cfg),
		model:   opts.Model,
		size:    opts.Size,
		quality: opts.Quality,
	}
}

// Name 提供商名称
func (g *OpenAIGenerator) Name() string {
	return "openai"
}

// Generate 生成一张图片并返回 URL
func (g *OpenAIGenerator) Generate(ctx context.Context, req workflowport.ImageRequest) (string, error) {
	size := req.Size
	if size == "" {
		size = g.size
	}
	quality := req.Quality
	if quality == "" {
		quality = g.quality
	}

	resp, err := g.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         req.Prompt,
		Model:          g.model,
		N:              1,
		Size:           size,
		Quality:        quality,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return "", fmt.Errorf("openai create image: %w", err)
	}

	for _, d := range resp.Data {
		if strings.TrimSpace(d.URL) != "" {
			return d.URL, nil
		}
		if d.B64JSON != "" {
			return "data:image/png;base64," + d.B64JSON, nil
		}
	}
	return "", ErrNoImage
}
