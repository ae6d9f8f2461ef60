package storyboard

import (
	"context"

	"storyboard-ai-api/internal/domain/entity"
	wfchain "storyboard-ai-api/internal/workflow/chain"
	wfmodel "storyboard-ai-api/internal/workflow/model"
	wfnode "storyboard-ai-api/internal/workflow/node"
	workflowport "storyboard-ai-api/internal/workflow/port"
	workflowprompt "storyboard-ai-api/internal/workflow/prompt"
	"storyboard-ai-api/pkg/logger"
)

// Illustrator 终稿插画：先从参考图提炼一致性描述，再逐场景出图
type Illustrator struct {
	vision *wfchain.VisionChain
	images workflowport.ImageGenerator
	opts   Options
}

func NewIllustrator(factory workflowport.ChatModelFactory, images workflowport.ImageGenerator, opts Options) *Illustrator {
	return &Illustrator{
		vision: wfchain.NewVisionChain(factory),
		images: images,
		opts:   opts,
	}
}

// Finalize 返回插画后的分镜副本，顺序与 id 不变；背景描述转入归档字段
func (il *Illustrator) Finalize(ctx context.Context, scenes entity.Scenes, referenceImageURL string) (entity.Scenes, error) {
	out, err := il.vision.Invoke(ctx, &wfmodel.VisionGenerateInput{
		Workflow: "consistency_prompt",
		Prompt:   string(workflowprompt.PromptConsistencyPromptV1),
		ImageURL: referenceImageURL,
		Provider: il.opts.Provider,
	})
	if err != nil {
		return nil, consistencyPromptError(err)
	}
	consistency := wfnode.CleanPromptText(out.Message.Content)
	if consistency == "" {
		return nil, consistencyPromptError(ErrEmptyPrompt)
	}
	logger.Debug(ctx, "consistency prompt derived", "prompt", wfnode.TruncateByRunes(consistency, 500))

	urls, err := wfnode.FanOut(ctx, scenes, il.opts.MaxConcurrency, func(ctx context.Context, _ int, s entity.Scene) (string, error) {
		prompt := wfnode.BuildSceneImagePrompt(consistency, s.Narrator, s.Character, s.Dialogue)
		url, err := generateImage(ctx, il.images, il.opts, prompt)
		if err != nil {
			return "", sceneImageError(s.ID, err)
		}
		return url, nil
	})
	if err != nil {
		return nil, err
	}

	finalized := scenes.Clone()
	for i := range finalized {
		finalized[i].BackgroundArchive = finalized[i].BackgroundText()
		finalized[i].BackgroundPrompt = ""
		finalized[i].CharacterImageURL = urls[i]
	}
	return finalized, nil
}
