package chain

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"storyboard-ai-api/internal/workflow/llmctx"
	wfmodel "storyboard-ai-api/internal/workflow/model"
	wfnode "storyboard-ai-api/internal/workflow/node"
	workflowport "storyboard-ai-api/internal/workflow/port"
)

// VisionChain 模板渲染后把参考图附加到 user 消息，调用多模态模型返回纯文本
type VisionChain struct {
	factory workflowport.ChatModelFactory

	chainOnce sync.Once
	chain     compose.Runnable[*wfmodel.VisionGenerateInput, *wfmodel.GenerateOutput]
	chainErr  error
}

func NewVisionChain(factory workflowport.ChatModelFactory) *VisionChain {
	return &VisionChain{factory: factory}
}

func (c *VisionChain) Invoke(ctx context.Context, in *wfmodel.VisionGenerateInput) (*wfmodel.GenerateOutput, error) {
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

type visionChainState struct {
	In       *wfmodel.VisionGenerateInput
	Provider string
	Messages []*schema.Message
	OutMsg   *schema.Message
}

func (c *VisionChain) getChain() (compose.Runnable[*wfmodel.VisionGenerateInput, *wfmodel.GenerateOutput], error) {
	c.chainOnce.Do(func() {
		c.chain, c.chainErr = c.buildChain(context.Background())
	})
	return c.chain, c.chainErr
}

func (c *VisionChain) buildChain(ctx context.Context) (compose.Runnable[*wfmodel.VisionGenerateInput, *wfmodel.GenerateOutput], error) {
	chain := compose.NewChain[*wfmodel.VisionGenerateInput, *wfmodel.GenerateOutput]()

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, in *wfmodel.VisionGenerateInput) (*visionChainState, error) {
			if in == nil {
				return nil, fmt.Errorf("input is nil")
			}
			if strings.TrimSpace(in.ImageURL) == "" {
				return nil, fmt.Errorf("image url is empty")
			}
			return &visionChainState{
				In:       in,
				Provider: c.factory.ProviderName(strings.TrimSpace(in.Provider)),
			}, nil
		}),
		compose.WithNodeName("vision.init"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *visionChainState) (*visionChainState, error) {
			if st == nil || st.In == nil {
				return nil, fmt.Errorf("state is nil")
			}
			msgs, err := formatMessages(ctx, st.In.Prompt, st.In.Vars)
			if err != nil {
				return nil, err
			}
			st.Messages = attachImage(msgs, strings.TrimSpace(st.In.ImageURL))
			return st, nil
		}),
		compose.WithNodeName("vision.template"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *visionChainState) (*visionChainState, error) {
			if st == nil || st.In == nil {
				return nil, fmt.Errorf("state is nil")
			}

			ctx = llmctx.WithWorkflowProvider(ctx, st.In.Workflow, st.Provider)
			chatModel, err := c.factory.GetVision(ctx, strings.TrimSpace(st.In.Provider))
			if err != nil {
				return nil, err
			}
			outMsg, err := chatModel.Generate(ctx, st.Messages, commonModelOptions(st.In.Temperature, st.In.MaxTokens, st.In.Model)...)
			if err != nil {
				return nil, err
			}
			if outMsg == nil {
				return nil, wfnode.ErrEmptyResponse
			}
			st.OutMsg = outMsg
			return st, nil
		}),
		compose.WithNodeName("vision.llm"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, st *visionChainState) (*wfmodel.GenerateOutput, error) {
			if st == nil || st.OutMsg == nil {
				return nil, fmt.Errorf("state is nil")
			}
			return &wfmodel.GenerateOutput{
				Message: st.OutMsg,
				Meta:    wfmodel.UsageFromMessage(st.Provider, strings.TrimSpace(st.In.Model), st.OutMsg),
			}, nil
		}),
		compose.WithNodeName("vision.finalize"),
	)

	return chain.Compile(ctx)
}

// attachImage 将最后一条 user 消息改写为 文本 + image_url 的多段内容
func attachImage(msgs []*schema.Message, imageURL string) []*schema.Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m == nil || m.Role != schema.User {
			continue
		}
		msgs[i] = &schema.Message{
			Role: schema.User,
			MultiContent: []schema.ChatMessagePart{
				{Type: schema.ChatMessagePartTypeText, Text: m.Content},
				{
					Type: schema.ChatMessagePartTypeImageURL,
					ImageURL: &schema.ChatMessageImageURL{
						URL:    imageURL,
						Detail: schema.ImageURLDetailAuto,
					},
				},
			},
		}
		return msgs
	}
	return append(msgs, &schema.Message{
		Role: schema.User,
		MultiContent: []schema.ChatMessagePart{{
			Type:     schema.ChatMessagePartTypeImageURL,
			ImageURL: &schema.ChatMessageImageURL{URL: imageURL, Detail: schema.ImageURLDetailAuto},
		}},
	})
}
