package storyboard

import (
	"storyboard-ai-api/internal/domain/entity"
	wfmodel "storyboard-ai-api/internal/workflow/model"
	wfnode "storyboard-ai-api/internal/workflow/node"
)

// toLegacyScenes 转换为模型使用的对外字段结构
func toLegacyScenes(scenes entity.Scenes) []wfmodel.StoryScene {
	out := make([]wfmodel.StoryScene, 0, len(scenes))
	for _, s := range scenes {
		out = append(out, wfmodel.StoryScene{
			ID:                   s.ID,
			Narrator:             s.Narrator,
			Character:            s.Character,
			CharacterImagePrompt: s.CharacterImagePrompt(),
			Dialogue:             s.Dialogue,
			BackgroundPrompt:     s.BackgroundPrompt,
		})
	}
	return out
}

// fromLegacyScenes 解析模型输出；characterImagePrompt 是图片地址时沿用 prior 中同 id 分镜的外观描述
func fromLegacyScenes(items []wfmodel.StoryScene, prior entity.Scenes) entity.Scenes {
	byID := make(map[int]entity.Scene, len(prior))
	for _, s := range prior {
		byID[s.ID] = s
	}

	out := make(entity.Scenes, 0, len(items))
	for _, it := range items {
		scene := entity.Scene{
			ID:               it.ID,
			Narrator:         it.Narrator,
			Character:        it.Character,
			Dialogue:         it.Dialogue,
			BackgroundPrompt: it.BackgroundPrompt,
		}
		prev, hasPrev := byID[it.ID]
		if wfnode.IsResolvableImageURL(it.CharacterImagePrompt) {
			scene.CharacterImageURL = it.CharacterImagePrompt
			if hasPrev {
				scene.CharacterDescription = prev.CharacterDescription
			}
		} else {
			scene.CharacterDescription = it.CharacterImagePrompt
		}
		if hasPrev && scene.BackgroundPrompt == "" {
			scene.BackgroundArchive = prev.BackgroundArchive
		}
		out = append(out, scene)
	}
	return out
}

// archivedBackgrounds 返回判断某 id 的背景是否已归档的函数
func archivedBackgrounds(scenes entity.Scenes) func(id int) bool {
	archived := make(map[int]bool, len(scenes))
	for _, s := range scenes {
		if s.BackgroundPrompt == "" && s.BackgroundArchive != "" {
			archived[s.ID] = true
		}
	}
	return func(id int) bool { return archived[id] }
}
