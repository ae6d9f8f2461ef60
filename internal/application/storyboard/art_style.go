package storyboard

import (
	"context"
	"fmt"
	"strings"

	"storyboard-ai-api/internal/domain/entity"
	wfchain "storyboard-ai-api/internal/workflow/chain"
	wfmodel "storyboard-ai-api/internal/workflow/model"
	wfnode "storyboard-ai-api/internal/workflow/node"
	workflowport "storyboard-ai-api/internal/workflow/port"
	workflowprompt "storyboard-ai-api/internal/workflow/prompt"
	"storyboard-ai-api/pkg/logger"
)

const artStyleCount = 3

// ArtStyleGenerator 画风建议与画风预览图精修
type ArtStyleGenerator struct {
	structured *wfchain.StructuredChain
	vision     *wfchain.VisionChain
	images     workflowport.ImageGenerator
	opts       Options
}

func NewArtStyleGenerator(factory workflowport.ChatModelFactory, images workflowport.ImageGenerator, opts Options) *ArtStyleGenerator {
	return &ArtStyleGenerator{
		structured: wfchain.NewStructuredChain(factory),
		vision:     wfchain.NewVisionChain(factory),
		images:     images,
		opts:       opts,
	}
}

// Suggest 基于参考分镜给出 3 个画风，并为每个画风生成预览图；任一失败则整体失败
func (g *ArtStyleGenerator) Suggest(ctx context.Context, scene entity.Scene) ([]entity.ArtStyleSuggestion, error) {
	out, err := g.structured.Invoke(ctx, &wfmodel.StructuredGenerateInput{
		Workflow: "art_style_suggest",
		Prompt:   string(workflowprompt.PromptArtStyleSuggestV1),
		Vars: map[string]any{
			"narrator":              scene.Narrator,
			"character":             scene.Character,
			"character_description": scene.CharacterDescription,
			"background":            scene.BackgroundText(),
		},
		SchemaName: "art_styles",
		Schema:     wfnode.ArtStyleJSONSchema(artStyleCount),
		Provider:   g.opts.Provider,
	})
	if err != nil {
		return nil, styleGenerationError(err)
	}

	doc, err := wfnode.ParseArtStyleDocument(out.Message.Content)
	if err != nil {
		return nil, styleGenerationError(err)
	}
	if len(doc.Styles) != artStyleCount {
		return nil, styleGenerationError(fmt.Errorf("expected %d styles, got %d", artStyleCount, len(doc.Styles)))
	}

	return wfnode.FanOut(ctx, doc.Styles, g.opts.MaxConcurrency, func(ctx context.Context, _ int, style wfmodel.ArtStyle) (entity.ArtStyleSuggestion, error) {
		prompt := wfnode.BuildStyleImagePrompt(scene.CharacterDescription, style.ImagePrompt)
		url, err := g.generateImage(ctx, prompt)
		if err != nil {
			return entity.ArtStyleSuggestion{}, imageGenerationError(styleSubject(style.Name), err)
		}
		return entity.ArtStyleSuggestion{
			Name:        style.Name,
			Description: style.Description,
			ImagePrompt: prompt,
			ImageURL:    url,
		}, nil
	})
}

// Refine 看图改写提示词并重新生成一张图，只返回新图地址
func (g *ArtStyleGenerator) Refine(ctx context.Context, imageURL, originalPrompt, change string) (string, error) {
	out, err := g.vision.Invoke(ctx, &wfmodel.VisionGenerateInput{
		Workflow: "art_style_refine",
		Prompt:   string(workflowprompt.PromptArtStyleRefineV1),
		Vars: map[string]any{
			"original_prompt": strings.TrimSpace(originalPrompt),
			"refinement":      strings.TrimSpace(change),
		},
		ImageURL: imageURL,
		Provider: g.opts.Provider,
	})
	if err != nil {
		return "", promptRefinementError(err)
	}

	newPrompt := wfnode.CleanPromptText(out.Message.Content)
	if newPrompt == "" {
		return "", promptRefinementError(ErrEmptyPrompt)
	}
	logger.Debug(ctx, "art style prompt refined", "new_prompt", wfnode.TruncateByRunes(newPrompt, 500))

	url, err := g.generateImage(ctx, newPrompt)
	if err != nil {
		return "", imageGenerationError("refined style", err)
	}
	return url, nil
}

func (g *ArtStyleGenerator) generateImage(ctx context.Context, prompt string) (string, error) {
	return generateImage(ctx, g.images, g.opts, prompt)
}

func generateImage(ctx context.Context, images workflowport.ImageGenerator, opts Options, prompt string) (string, error) {
	url, err := images.Generate(ctx, workflowport.ImageRequest{
		Prompt:  prompt,
		Size:    opts.ImageSize,
		Quality: opts.ImageQuality,
	})
	if err != nil {
		return "", err
	}
	if !wfnode.IsResolvableImageURL(url) {
		return "", ErrNoImageURL
	}
	return url, nil
}
