package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	workflowport "storyboard-ai-api/internal/workflow/port"
)

const (
	defaultArkBaseURL = "https://ark.cn-beijing.volces.com"
	defaultArkModel   = "doubao-seedream-4.0"
	defaultArkSize    = "1024x1024"
)

// ArkGenerator 火山方舟图像生成（/api/v3/images/generations）
type ArkGenerator struct {
	baseURL    string
	apiKey     string
	model      string
	size       string
	httpClient *http.Client
}

// ArkOptions 方舟生成器参数
type ArkOptions struct {
	APIKey  string
	BaseURL string
	Model   string
	Size    string
	Timeout time.Duration
}

// NewArkGenerator 创建方舟图像生成器
func NewArkGenerator(opts ArkOptions) *ArkGenerator {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultArkBaseURL
	}
	if opts.Model == "" {
		opts.Model = defaultArkModel
	}
	if opts.Size == "" {
		opts.Size = defaultArkSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	return &ArkGenerator{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		model:      opts.Model,
		size:       opts.Size,
		httpClient: &http.Client{Timeout: opts.Timeout},
	}
}

// Name 提供商名称
func (g *ArkGenerator) Name() string {
	return "ark"
}

type arkImageResponse struct {
	Data []struct {
		URL    string `json:"url"`
		B64    string `json:"b64_json"`
		Format string `json:"format"`
	} `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate 生成一张图片；返回 base64 时转为 data URI
func (g *ArkGenerator) Generate(ctx context.Context, req workflowport.ImageRequest) (string, error) {
	size := req.Size
	if size == "" {
		size = g.size
	}
	body, err := json.Marshal(map[string]any{
		"model":  g.model,
		"prompt": req.Prompt,
		"size":   size,
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/v3/images/generations", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ark image request: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 32<<20))
	if err != nil {
		return "", fmt.Errorf("ark image read body: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", fmt.Errorf("ark image http %d: %s", res.StatusCode, truncate(string(raw), 256))
	}

	var resp arkImageResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("ark image decode: %w", err)
	}
	if resp.Error != nil && resp.Error.Message != "" {
		return "", fmt.Errorf("ark image error %s: %s", resp.Error.Code, resp.Error.Message)
	}

	for _, d := range resp.Data {
		if d.URL != "" {
			return d.URL, nil
		}
		if d.B64 != "" {
			format := d.Format
			if format == "" {
				format = "png"
			}
			return "data:image/" + format + ";base64," + d.B64, nil
		}
	}
	return "", ErrNoImage
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
