package dto

import (
	"time"

	"storyboard-ai-api/internal/domain/entity"
)

// CreateStoryRequest 创建故事请求
type CreateStoryRequest struct {
	Briefing   string `json:"briefing" binding:"required,min=10"`
	SceneCount int    `json:"sceneCount" binding:"required,min=2,max=10"`
}

// RefineStoryRequest 精修故事请求
type RefineStoryRequest struct {
	Prompt string `json:"prompt" binding:"required,min=5"`
}

// RefineArtStyleRequest 精修画风预览图请求
type RefineArtStyleRequest struct {
	OriginalImageURL    string `json:"originalImageUrl" binding:"required,http_url"`
	OriginalImagePrompt string `json:"originalImagePrompt" binding:"required"`
	RefinementPrompt    string `json:"refinementPrompt" binding:"required"`
}

// FinalizeStoryRequest 终稿插画请求
type FinalizeStoryRequest struct {
	ReferenceImageURL string `json:"referenceImageUrl" binding:"required,http_url"`
}

// SceneResponse 对外分镜结构
type SceneResponse struct {
	ID                   int    `json:"id"`
	Narrator             string `json:"narrator"`
	Character            string `json:"character"`
	CharacterImagePrompt string `json:"characterImagePrompt"`
	Dialogue             string `json:"dialogue"`
	BackgroundPrompt     string `json:"backgroundPrompt"`
}

// StoryResponse 创建/精修故事响应
type StoryResponse struct {
	SessionID string           `json:"sessionId"`
	Story     []*SceneResponse `json:"story"`
	Warnings  []string         `json:"warnings,omitempty"`
}

// SessionResponse 完整会话记录
type SessionResponse struct {
	UUID              string           `json:"uuid"`
	InitialBriefing   string           `json:"initialBriefing"`
	SceneCount        int              `json:"sceneCount"`
	CurrentStoryState []*SceneResponse `json:"currentStoryState"`
	Version           int64            `json:"version"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// ArtStyleResponse 画风建议
type ArtStyleResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ImagePrompt string `json:"imagePrompt"`
	ImageURL    string `json:"imageUrl"`
}

// RefineArtStyleResponse 精修后的预览图
type RefineArtStyleResponse struct {
	NewImageURL string `json:"newImageUrl"`
}

// SessionEventResponse 会话事件
type SessionEventResponse struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// ToSceneResponse 合并内部拆分字段：插画后 characterImagePrompt 为图片 URL
func ToSceneResponse(s entity.Scene) *SceneResponse {
	return &SceneResponse{
		ID:                   s.ID,
		Narrator:             s.Narrator,
		Character:            s.Character,
		CharacterImagePrompt: s.CharacterImagePrompt(),
		Dialogue:             s.Dialogue,
		BackgroundPrompt:     s.BackgroundPrompt,
	}
}

// ToSceneResponses 转换分镜列表，nil 保持为 nil
func ToSceneResponses(scenes entity.Scenes) []*SceneResponse {
	if scenes == nil {
		return nil
	}
	out := make([]*SceneResponse, 0, len(scenes))
	for _, s := range scenes {
		out = append(out, ToSceneResponse(s))
	}
	return out
}

// ToStoryResponse 创建/精修响应
func ToStoryResponse(session *entity.StorySession, warnings []string) *StoryResponse {
	return &StoryResponse{
		SessionID: session.UUID,
		Story:     ToSceneResponses(session.Scenes),
		Warnings:  warnings,
	}
}

// ToSessionResponse 会话记录响应
func ToSessionResponse(session *entity.StorySession) *SessionResponse {
	return &SessionResponse{
		UUID:              session.UUID,
		InitialBriefing:   session.InitialBriefing,
		SceneCount:        session.SceneCount,
		CurrentStoryState: ToSceneResponses(session.Scenes),
		Version:           session.Version,
		CreatedAt:         session.CreatedAt,
		UpdatedAt:         session.UpdatedAt,
	}
}

// ToArtStyleResponses 画风建议列表
func ToArtStyleResponses(styles []entity.ArtStyleSuggestion) []*ArtStyleResponse {
	out := make([]*ArtStyleResponse, 0, len(styles))
	for _, s := range styles {
		out = append(out, &ArtStyleResponse{
			Name:        s.Name,
			Description: s.Description,
			ImagePrompt: s.ImagePrompt,
			ImageURL:    s.ImageURL,
		})
	}
	return out
}

// ToSessionEventResponses 会话事件列表
func ToSessionEventResponses(events []*entity.SessionEvent) []*SessionEventResponse {
	out := make([]*SessionEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, &SessionEventResponse{
			ID:        e.ID,
			Type:      string(e.Type),
			Payload:   e.Payload,
			RequestID: e.RequestID,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}
