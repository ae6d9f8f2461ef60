package node

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	wfmodel "storyboard-ai-api/internal/workflow/model"
)

var (
	ErrScenesMissing  = errors.New(`llm output has no "scenes" field`)
	ErrScenesNotArray = errors.New(`llm output "scenes" is not an array`)
	ErrStylesMissing  = errors.New(`llm output has no "styles" array`)
	ErrSceneShape     = errors.New("llm output scene has invalid shape")
)

// ParseStoryDocument 解析 {"scenes":[...]} 结构的模型输出
func ParseStoryDocument(content string) (*wfmodel.StoryDocument, error) {
	var raw map[string]json.RawMessage
	if err := DecodeJSONObject(content, &raw); err != nil {
		return nil, err
	}
	scenesRaw, ok := raw["scenes"]
	if !ok {
		return nil, ErrScenesMissing
	}
	var scenes []wfmodel.StoryScene
	if err := json.Unmarshal(scenesRaw, &scenes); err != nil {
		var generic any
		if json.Unmarshal(scenesRaw, &generic) == nil {
			if _, isArr := generic.([]any); !isArr {
				return nil, ErrScenesNotArray
			}
		}
		return nil, fmt.Errorf("decode scenes: %w", err)
	}
	if scenes == nil {
		return nil, ErrScenesNotArray
	}
	for i, sc := range scenes {
		if err := checkSceneShape(sc); err != nil {
			return nil, fmt.Errorf("scene %d: %w", i+1, err)
		}
	}
	return &wfmodel.StoryDocument{Scenes: scenes}, nil
}

// checkSceneShape 要求正整数 id 与非空文本字段。
// backgroundPrompt 在出图后会被清空，是否必填由调用方结合上下文判断
func checkSceneShape(sc wfmodel.StoryScene) error {
	if sc.ID <= 0 {
		return fmt.Errorf("%w: id must be a positive integer", ErrSceneShape)
	}
	fields := []struct {
		name  string
		value string
	}{
		{"narrator", sc.Narrator},
		{"character", sc.Character},
		{"characterImagePrompt", sc.CharacterImagePrompt},
		{"dialogue", sc.Dialogue},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s is empty", ErrSceneShape, f.name)
		}
	}
	return nil
}

// RequireBackgrounds 校验 backgroundPrompt；archived 返回 true 的 id 允许为空
func RequireBackgrounds(scenes []wfmodel.StoryScene, archived func(id int) bool) error {
	for i, sc := range scenes {
		if strings.TrimSpace(sc.BackgroundPrompt) != "" {
			continue
		}
		if archived != nil && archived(sc.ID) {
			continue
		}
		return fmt.Errorf("scene %d: %w: backgroundPrompt is empty", i+1, ErrSceneShape)
	}
	return nil
}

// ParseArtStyleDocument 解析 {"styles":[...]} 结构的模型输出
func ParseArtStyleDocument(content string) (*wfmodel.ArtStyleDocument, error) {
	var doc wfmodel.ArtStyleDocument
	if err := DecodeJSONObject(content, &doc); err != nil {
		return nil, err
	}
	if doc.Styles == nil {
		return nil, ErrStylesMissing
	}
	return &doc, nil
}

// StoryJSONSchema 故事结构的 json_schema，sceneCount > 0 时固定数组长度
func StoryJSONSchema(sceneCount int) map[string]any {
	scenes := map[string]any{
		"type": "array",
		"items": map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"required":             []any{"id", "narrator", "character", "characterImagePrompt", "dialogue", "backgroundPrompt"},
			"properties": map[string]any{
				"id":                   map[string]any{"type": "integer"},
				"narrator":             map[string]any{"type": "string"},
				"character":            map[string]any{"type": "string"},
				"characterImagePrompt": map[string]any{"type": "string"},
				"dialogue":             map[string]any{"type": "string"},
				"backgroundPrompt":     map[string]any{"type": "string"},
			},
		},
	}
	if sceneCount > 0 {
		scenes["minItems"] = sceneCount
		scenes["maxItems"] = sceneCount
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"scenes"},
		"properties": map[string]any{
			"scenes": scenes,
		},
	}
}

// ArtStyleJSONSchema 画风建议的 json_schema
func ArtStyleJSONSchema(count int) map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"styles"},
		"properties": map[string]any{
			"styles": map[string]any{
				"type":     "array",
				"minItems": count,
				"maxItems": count,
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []any{"name", "description", "imagePrompt"},
					"properties": map[string]any{
						"name":        map[string]any{"type": "string"},
						"description": map[string]any{"type": "string"},
						"imagePrompt": map[string]any{"type": "string"},
					},
				},
			},
		},
	}
}
