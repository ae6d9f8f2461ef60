package storyboard

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"storyboard-ai-api/internal/domain/entity"
	wfchain "storyboard-ai-api/internal/workflow/chain"
	wfmodel "storyboard-ai-api/internal/workflow/model"
	wfnode "storyboard-ai-api/internal/workflow/node"
	workflowport "storyboard-ai-api/internal/workflow/port"
	workflowprompt "storyboard-ai-api/internal/workflow/prompt"
	"storyboard-ai-api/pkg/logger"
	"storyboard-ai-api/pkg/metrics"
)

// RefineResult 精修结果；场景数量变化时 Warnings 非空
type RefineResult struct {
	Scenes   entity.Scenes
	Warnings []string
}

// StoryGenerator 故事生成与精修
type StoryGenerator struct {
	chain *wfchain.StructuredChain
	opts  Options

	generatePolicy ScenePolicy
	refinePolicy   ScenePolicy
}

func NewStoryGenerator(factory workflowport.ChatModelFactory, opts Options) *StoryGenerator {
	return &StoryGenerator{
		chain:          wfchain.NewStructuredChain(factory),
		opts:           opts,
		generatePolicy: ScenePolicyExact,
		refinePolicy:   ScenePolicyTolerant,
	}
}

// Generate 根据简报生成恰好 sceneCount 个分镜
func (g *StoryGenerator) Generate(ctx context.Context, briefing string, sceneCount int) (entity.Scenes, error) {
	out, err := g.chain.Invoke(ctx, &wfmodel.StructuredGenerateInput{
		Workflow: "story_generate",
		Prompt:   string(workflowprompt.PromptStoryGenerateV1),
		Vars: map[string]any{
			"briefing":    strings.TrimSpace(briefing),
			"scene_count": sceneCount,
		},
		SchemaName: "storyboard_story",
		Schema:     wfnode.StoryJSONSchema(sceneCount),
		Provider:   g.opts.Provider,
	})
	if err != nil {
		return nil, generationError(err)
	}

	doc, err := wfnode.ParseStoryDocument(out.Message.Content)
	if err != nil {
		return nil, generationError(err)
	}
	if err := wfnode.RequireBackgrounds(doc.Scenes, nil); err != nil {
		return nil, generationError(err)
	}
	if _, err := g.generatePolicy.Check(sceneCount, len(doc.Scenes)); err != nil {
		return nil, generationError(err)
	}

	logger.Debug(ctx, "story generated",
		"scenes", len(doc.Scenes),
		"prompt_tokens", out.Meta.PromptTokens,
		"completion_tokens", out.Meta.CompletionTokens,
	)
	return fromLegacyScenes(doc.Scenes, nil), nil
}

// Refine 按指令改写整个故事，场景数量变化只告警
func (g *StoryGenerator) Refine(ctx context.Context, scenes entity.Scenes, instruction string) (*RefineResult, error) {
	storyJSON, err := json.MarshalIndent(wfmodel.StoryDocument{Scenes: toLegacyScenes(scenes)}, "", "  ")
	if err != nil {
		return nil, refinementError(fmt.Errorf("encode current story: %w", err))
	}

	out, err := g.chain.Invoke(ctx, &wfmodel.StructuredGenerateInput{
		Workflow: "story_refine",
		Prompt:   string(workflowprompt.PromptStoryRefineV1),
		Vars: map[string]any{
			"story_json":  string(storyJSON),
			"instruction": strings.TrimSpace(instruction),
			"scene_count": len(scenes),
		},
		SchemaName: "storyboard_story",
		Schema:     wfnode.StoryJSONSchema(0),
		Provider:   g.opts.Provider,
	})
	if err != nil {
		return nil, refinementError(err)
	}

	doc, err := wfnode.ParseStoryDocument(out.Message.Content)
	if err != nil {
		return nil, refinementError(err)
	}
	// 已出图的分镜背景描述只在归档里，允许模型原样返回空串
	if err := wfnode.RequireBackgrounds(doc.Scenes, archivedBackgrounds(scenes)); err != nil {
		return nil, refinementError(err)
	}
	warning, err := g.refinePolicy.Check(len(scenes), len(doc.Scenes))
	if err != nil {
		return nil, refinementError(err)
	}

	result := &RefineResult{Scenes: fromLegacyScenes(doc.Scenes, scenes)}
	if warning != "" {
		metrics.SceneCountDriftTotal.Inc()
		logger.Warn(ctx, "refined story changed scene count",
			"expected", len(scenes),
			"got", len(doc.Scenes),
		)
		result.Warnings = append(result.Warnings, warning)
	}
	return result, nil
}
