package imagegen

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"storyboard-ai-api/internal/config"
	workflowport "storyboard-ai-api/internal/workflow/port"
	"storyboard-ai-api/pkg/metrics"
	"storyboard-ai-api/pkg/tracer"
)

// New 按 image.provider 构建生成器，并包装指标与追踪
func New(cfg *config.ImageConfig) (workflowport.ImageGenerator, error) {
	var gen workflowport.ImageGenerator
	switch cfg.Provider {
	case "openai":
		var httpClient *http.Client
		if cfg.Timeout > 0 {
			httpClient = &http.Client{Timeout: cfg.Timeout}
		}
		gen = NewOpenAIGenerator(OpenAIOptions{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Size:       cfg.Size,
			Quality:    cfg.Quality,
			HTTPClient: httpClient,
		})
	case "ark":
		gen = NewArkGenerator(ArkOptions{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Size:    cfg.Size,
			Timeout: cfg.Timeout,
		})
	case "mock":
		gen = NewMockGenerator()
	default:
		return nil, fmt.Errorf("unsupported image provider %q", cfg.Provider)
	}
	return Instrument(gen), nil
}

// instrumented 记录调用次数、耗时与 span
type instrumented struct {
	next workflowport.ImageGenerator
}

// Instrument 为生成器增加指标与追踪
func Instrument(next workflowport.ImageGenerator) workflowport.ImageGenerator {
	return &instrumented{next: next}
}

func (i *instrumented) Name() string {
	return i.next.Name()
}

func (i *instrumented) Generate(ctx context.Context, req workflowport.ImageRequest) (string, error) {
	provider := i.next.Name()
	ctx, span := tracer.Start(ctx, "image.Generate")
	span.SetAttributes(
		attribute.String("image.provider", provider),
		attribute.Int("image.prompt_length", len(req.Prompt)),
	)
	defer span.End()

	start := time.Now()
	url, err := i.next.Generate(ctx, req)
	metrics.ImageCallDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.ImageCallTotal.WithLabelValues(provider, "error").Inc()
		return "", err
	}
	metrics.ImageCallTotal.WithLabelValues(provider, "success").Inc()
	return url, nil
}
