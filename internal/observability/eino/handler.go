// Package eino 注册 Eino 全局回调，统一采集模型调用的指标与追踪
package eino

import (
	"context"
	"sync"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"storyboard-ai-api/internal/workflow/llmctx"
	"storyboard-ai-api/pkg/logger"
	"storyboard-ai-api/pkg/metrics"
)

var registerOnce sync.Once

// Register 把模型回调挂到 Eino 全局回调链上，重复调用无副作用
func Register() {
	registerOnce.Do(func() {
		einocb.AppendGlobalHandlers(cbtemplate.NewHandlerHelper().
			ChatModel(newChatModelCallbackHandler()).
			Handler())
	})
}

type callStateKey struct{}

// callState OnStart 时确定的标签，OnEnd/OnError 沿用，保证同一次调用的标签一致
type callState struct {
	start    time.Time
	workflow string
	provider string
	model    string
}

func (s *callState) labels(status string) []string {
	return []string{s.workflow, s.provider, s.model, status}
}

func stateFrom(ctx context.Context, info *einocb.RunInfo) *callState {
	if st, ok := ctx.Value(callStateKey{}).(*callState); ok {
		return st
	}
	// 没经过 OnStart（理论上不会发生），临时拼一份
	return &callState{
		workflow: llmctx.WorkflowFromContext(ctx),
		provider: llmctx.ProviderFromContext(ctx),
		model:    runInfoType(info),
	}
}

// newChatModelCallbackHandler 模型调用回调：调用次数、耗时、Token 与 llm.generate span
func newChatModelCallbackHandler() *cbtemplate.ModelCallbackHandler {
	return &cbtemplate.ModelCallbackHandler{
		OnStart: onModelStart,
		OnEnd:   onModelEnd,
		OnError: onModelError,
	}
}

func onModelStart(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
	st := &callState{
		start:    time.Now(),
		workflow: llmctx.WorkflowFromContext(ctx),
		provider: llmctx.ProviderFromContext(ctx),
		model:    runInfoType(info),
	}
	if input != nil && input.Config != nil && input.Config.Model != "" {
		st.model = input.Config.Model
	}

	attrs := []attribute.KeyValue{
		attribute.String("eino.workflow", st.workflow),
		attribute.String("llm.provider", st.provider),
		attribute.String("llm.model", st.model),
	}
	if info != nil {
		attrs = append(attrs, attribute.String("eino.node_name", info.Name))
	}
	ctx, _ = otel.Tracer("eino").Start(ctx, "llm.generate", trace.WithAttributes(attrs...))
	return context.WithValue(ctx, callStateKey{}, st)
}

func onModelEnd(ctx context.Context, info *einocb.RunInfo, output *model.CallbackOutput) context.Context {
	st := stateFrom(ctx, info)
	if output != nil && output.Config != nil && output.Config.Model != "" {
		st.model = output.Config.Model
	}
	elapsed := st.elapsed()

	metrics.LLMCallTotal.WithLabelValues(st.labels("success")...).Inc()
	if elapsed > 0 {
		metrics.LLMCallDuration.WithLabelValues(st.workflow, st.provider, st.model).Observe(elapsed.Seconds())
	}

	span := trace.SpanFromContext(ctx)
	defer span.End()
	if output == nil || output.TokenUsage == nil {
		return ctx
	}

	usage := output.TokenUsage
	metrics.LLMTokensUsed.WithLabelValues(st.workflow, st.provider, st.model, "prompt").Add(float64(usage.PromptTokens))
	metrics.LLMTokensUsed.WithLabelValues(st.workflow, st.provider, st.model, "completion").Add(float64(usage.CompletionTokens))
	span.SetAttributes(
		attribute.Int("llm.prompt_tokens", usage.PromptTokens),
		attribute.Int("llm.completion_tokens", usage.CompletionTokens),
	)
	logger.Debug(ctx, "llm call finished",
		"workflow", st.workflow,
		"provider", st.provider,
		"model", st.model,
		"prompt_tokens", usage.PromptTokens,
		"completion_tokens", usage.CompletionTokens,
		"duration_ms", elapsed.Milliseconds(),
	)
	return ctx
}

func onModelError(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
	st := stateFrom(ctx, info)

	metrics.LLMCallTotal.WithLabelValues(st.labels("error")...).Inc()
	if elapsed := st.elapsed(); elapsed > 0 {
		metrics.LLMCallDuration.WithLabelValues(st.workflow, st.provider, st.model).Observe(elapsed.Seconds())
	}
	logger.Warn(ctx, "llm call failed",
		"workflow", st.workflow,
		"provider", st.provider,
		"model", st.model,
		"error", err.Error(),
	)

	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.End()
	return ctx
}

// elapsed 未记录开始时间时为 0
func (s *callState) elapsed() time.Duration {
	if s.start.IsZero() {
		return 0
	}
	return time.Since(s.start)
}

func runInfoType(info *einocb.RunInfo) string {
	if info == nil {
		return ""
	}
	return info.Type
}
