package node

import (
	"strings"
)

// BuildStyleImagePrompt 画风预览图提示词：角色外观 + 画风关键词
func BuildStyleImagePrompt(characterDescription, styleImagePrompt string) string {
	return joinNonEmpty(", ", characterDescription, styleImagePrompt)
}

// BuildSceneImagePrompt 分镜插画提示词：一致性描述在前，再拼接分镜旁白、角色与台词
func BuildSceneImagePrompt(consistencyPrompt, narrator, character, dialogue string) string {
	parts := make([]string, 0, 4)
	if s := strings.TrimSpace(consistencyPrompt); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(narrator); s != "" {
		parts = append(parts, "Scene: "+s)
	}
	if s := strings.TrimSpace(character); s != "" {
		parts = append(parts, "Character: "+s)
	}
	if s := strings.TrimSpace(dialogue); s != "" {
		parts = append(parts, "The character says: \""+s+"\"")
	}
	return strings.Join(parts, ". ")
}

func joinNonEmpty(sep string, values ...string) string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, sep)
}
