// Package prompt 内嵌的提示词模板，按 ID 取出 system + user 两段 FString 模板
package prompt

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed templates/*.txt
var templatesFS embed.FS

// PromptID 模板标识，对应 templates/<id>.system.txt 与 templates/<id>.user.txt
type PromptID string

const (
	PromptStoryGenerateV1     PromptID = "story_generate_v1"
	PromptStoryRefineV1       PromptID = "story_refine_v1"
	PromptArtStyleSuggestV1   PromptID = "art_style_suggest_v1"
	PromptArtStyleRefineV1    PromptID = "art_style_refine_v1"
	PromptConsistencyPromptV1 PromptID = "consistency_prompt_v1"
)

// All 已登记的全部模板
func All() []PromptID {
	return []PromptID{
		PromptStoryGenerateV1,
		PromptStoryRefineV1,
		PromptArtStyleSuggestV1,
		PromptArtStyleRefineV1,
		PromptConsistencyPromptV1,
	}
}

type entry struct {
	once sync.Once
	tpl  einoprompt.ChatTemplate
	err  error
}

// Registry 首次使用时解析模板，之后复用同一实例
type Registry struct {
	entries map[PromptID]*entry
}

func NewRegistry() *Registry {
	ids := All()
	r := &Registry{entries: make(map[PromptID]*entry, len(ids))}
	for _, id := range ids {
		r.entries[id] = &entry{}
	}
	return r
}

// ChatTemplate 取模板；未登记的 ID 返回错误
func (r *Registry) ChatTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("unknown prompt id: %s", id)
	}
	e.once.Do(func() { e.tpl, e.err = load(id) })
	return e.tpl, e.err
}

func load(id PromptID) (einoprompt.ChatTemplate, error) {
	system, err := readTemplate(id, "system")
	if err != nil {
		return nil, err
	}
	user, err := readTemplate(id, "user")
	if err != nil {
		return nil, err
	}
	return einoprompt.FromMessages(schema.FString,
		schema.SystemMessage(system),
		schema.UserMessage(user),
	), nil
}

func readTemplate(id PromptID, role string) (string, error) {
	name := fmt.Sprintf("templates/%s.%s.txt", id, role)
	b, err := templatesFS.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("read prompt %s: %w", name, err)
	}
	return strings.TrimSpace(string(b)), nil
}
