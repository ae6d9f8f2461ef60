package model

import "github.com/cloudwego/eino/schema"

// StoryScene 模型输入输出使用的分镜结构（沿用对外字段名）
type StoryScene struct {
	ID                   int    `json:"id"`
	Narrator             string `json:"narrator"`
	Character            string `json:"character"`
	CharacterImagePrompt string `json:"characterImagePrompt"`
	Dialogue             string `json:"dialogue"`
	BackgroundPrompt     string `json:"backgroundPrompt"`
}

// StoryDocument 故事生成/精修的结构化输出
type StoryDocument struct {
	Scenes []StoryScene `json:"scenes"`
}

// ArtStyle 画风建议的结构化输出元素
type ArtStyle struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ImagePrompt string `json:"imagePrompt"`
}

// ArtStyleDocument 画风建议的结构化输出
type ArtStyleDocument struct {
	Styles []ArtStyle `json:"styles"`
}

// StructuredGenerateInput 结构化文本生成输入
type StructuredGenerateInput struct {
	Workflow string
	Prompt   string
	Vars     map[string]any

	// SchemaName/Schema 为空时只依赖提示词约束输出格式
	SchemaName string
	Schema     map[string]any

	Provider    string
	Model       string
	Temperature *float32
	MaxTokens   *int
}

// VisionGenerateInput 带参考图的文本生成输入
type VisionGenerateInput struct {
	Workflow string
	Prompt   string
	Vars     map[string]any
	ImageURL string

	Provider    string
	Model       string
	Temperature *float32
	MaxTokens   *int
}

// GenerateOutput 文本生成结果
type GenerateOutput struct {
	Message *schema.Message
	Meta    LLMUsageMeta
}
