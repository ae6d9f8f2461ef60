package chain

import (
	"context"
	"fmt"
	"strings"
	"sync"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"storyboard-ai-api/internal/workflow/llmctx"
	wfmodel "storyboard-ai-api/internal/workflow/model"
	wfnode "storyboard-ai-api/internal/workflow/node"
	workflowport "storyboard-ai-api/internal/workflow/port"
	workflowprompt "storyboard-ai-api/internal/workflow/prompt"
	"storyboard-ai-api/pkg/logger"
)

// StructuredChain 模板渲染 + 单次文本调用，优先使用 response_format=json_schema
type StructuredChain struct {
	factory workflowport.ChatModelFactory

	chainOnce sync.Once
	chain     compose.Runnable[*wfmodel.StructuredGenerateInput, *wfmodel.GenerateOutput]
	chainErr  error
}

func NewStructuredChain(factory workflowport.ChatModelFactory) *StructuredChain {
	return &StructuredChain{factory: factory}
}

func (c *StructuredChain) Invoke(ctx context.Context, in *wfmodel.StructuredGenerateInput) (*wfmodel.GenerateOutput, error) {
	if c == nil || c.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}

	chain, err := c.getChain()
	if err != nil {
		return nil, err
	}
	return chain.Invoke(ctx, in)
}

type structuredChainState struct {
	In       *wfmodel.StructuredGenerateInput
	Provider string
	Messages []*schema.Message
	OutMsg   *schema.Message
}

func (c *StructuredChain) getChain() (compose.Runnable[*wfmodel.StructuredGenerateInput, *wfmodel.GenerateOutput], error) {
	c.chainOnce.Do(func() {
		c.chain, c.chainErr = c.buildChain(context.Background())
	})
	return c.chain, c.chainErr
}

func (c *StructuredChain) buildChain(ctx context.Context) (compose.Runnable[*wfmodel.StructuredGenerateInput, *wfmodel.GenerateOutput], error) {
	chain := compose.NewChain[*wfmodel.StructuredGenerateInput, *wfmodel.GenerateOutput]()

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, in *wfmodel.StructuredGenerateInput) (*structuredChainState, error) {
			if in == nil {
				return nil, fmt.Errorf("input is nil")
			}
			return &structuredChainState{
				In:       in,
				Provider: c.factory.ProviderName(strings.TrimSpace(in.Provider)),
			}, nil
		}),
		compose.WithNodeName("structured.init"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *structuredChainState) (*structuredChainState, error) {
			if st == nil || st.In == nil {
				return nil, fmt.Errorf("state is nil")
			}
			msgs, err := formatMessages(ctx, st.In.Prompt, st.In.Vars)
			if err != nil {
				return nil, err
			}
			st.Messages = msgs
			return st, nil
		}),
		compose.WithNodeName("structured.template"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *structuredChainState) (*structuredChainState, error) {
			if st == nil || st.In == nil {
				return nil, fmt.Errorf("state is nil")
			}

			ctx = llmctx.WithWorkflowProvider(ctx, st.In.Workflow, st.Provider)
			chatModel, err := c.factory.Get(ctx, strings.TrimSpace(st.In.Provider))
			if err != nil {
				return nil, err
			}

			enableSchema := len(st.In.Schema) > 0
			outMsg, err := chatModel.Generate(ctx, st.Messages, buildStructuredOptions(st.In, enableSchema)...)
			if err != nil && enableSchema && wfnode.IsResponseFormatUnsupportedError(err) {
				logger.Warn(ctx, "llm json_schema not supported, fallback to prompt-only",
					"provider", st.Provider,
					"model", strings.TrimSpace(st.In.Model),
					"error", err.Error(),
				)
				outMsg, err = chatModel.Generate(ctx, st.Messages, buildStructuredOptions(st.In, false)...)
			}
			if err != nil {
				return nil, err
			}
			if outMsg == nil {
				return nil, wfnode.ErrEmptyResponse
			}
			st.OutMsg = outMsg
			return st, nil
		}),
		compose.WithNodeName("structured.llm"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, st *structuredChainState) (*wfmodel.GenerateOutput, error) {
			if st == nil || st.OutMsg == nil {
				return nil, fmt.Errorf("state is nil")
			}
			return &wfmodel.GenerateOutput{
				Message: st.OutMsg,
				Meta:    wfmodel.UsageFromMessage(st.Provider, strings.TrimSpace(st.In.Model), st.OutMsg),
			}, nil
		}),
		compose.WithNodeName("structured.finalize"),
	)

	return chain.Compile(ctx)
}

var defaultPromptRegistry = workflowprompt.NewRegistry()

func formatMessages(ctx context.Context, id string, vars map[string]any) ([]*schema.Message, error) {
	tpl, err := defaultPromptRegistry.ChatTemplate(workflowprompt.PromptID(id))
	if err != nil {
		return nil, err
	}
	if vars == nil {
		vars = map[string]any{}
	}
	return tpl.Format(ctx, vars)
}

func commonModelOptions(temperature *float32, maxTokens *int, modelName string) []model.Option {
	opts := make([]model.Option, 0, 4)
	if temperature != nil {
		opts = append(opts, model.WithTemperature(*temperature))
	}
	if maxTokens != nil {
		opts = append(opts, model.WithMaxTokens(*maxTokens))
	}
	if m := strings.TrimSpace(modelName); m != "" {
		opts = append(opts, model.WithModel(m))
	}
	return opts
}

func buildStructuredOptions(in *wfmodel.StructuredGenerateInput, enableSchema bool) []model.Option {
	opts := commonModelOptions(in.Temperature, in.MaxTokens, in.Model)
	if enableSchema {
		name := strings.TrimSpace(in.SchemaName)
		if name == "" {
			name = strings.TrimSpace(in.Prompt)
		}
		opts = append(opts, openaiopts.WithExtraFields(map[string]any{
			"response_format": map[string]any{
				"type": "json_schema",
				"json_schema": map[string]any{
					"name":   name,
					"strict": false,
					"schema": in.Schema,
				},
			},
		}))
	}
	return opts
}
