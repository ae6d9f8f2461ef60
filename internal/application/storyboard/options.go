// Package storyboard 编排故事生成、精修、画风与终稿插画各阶段
package storyboard

import (
	"storyboard-ai-api/internal/config"
)

const defaultMaxConcurrency = 10

// Options 各阶段共享的只读配置
type Options struct {
	// Provider 为空时使用 llm.default_provider
	Provider string

	ImageSize      string
	ImageQuality   string
	MaxConcurrency int
}

// NewOptions 从全局配置派生阶段配置
func NewOptions(cfg *config.Config) Options {
	opts := Options{
		Provider:       cfg.LLM.DefaultProvider,
		ImageSize:      cfg.Image.Size,
		ImageQuality:   cfg.Image.Quality,
		MaxConcurrency: cfg.Image.MaxConcurrency,
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = defaultMaxConcurrency
	}
	return opts
}
