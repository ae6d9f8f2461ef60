package port

import "context"

// ImageRequest 单张图片生成请求
type ImageRequest struct {
	Prompt  string
	Size    string
	Quality string
}

// ImageGenerator 图像生成能力（port），每次调用返回一个可访问的图片 URL
type ImageGenerator interface {
	Generate(ctx context.Context, req ImageRequest) (string, error)
	Name() string
}
