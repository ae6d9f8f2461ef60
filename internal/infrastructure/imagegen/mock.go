package imagegen

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	workflowport "storyboard-ai-api/internal/workflow/port"
)

// MockGenerator 本地开发用，按 prompt 返回确定性的占位 URL
type MockGenerator struct{}

// NewMockGenerator 创建占位生成器
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Name 提供商名称
func (MockGenerator) Name() string {
	return "mock"
}

// Generate 返回占位图片 URL
func (MockGenerator) Generate(ctx context.Context, req workflowport.ImageRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(req.Prompt))
	return "https://mock.storyboard.local/images/" + hex.EncodeToString(sum[:8]) + ".png", nil
}
