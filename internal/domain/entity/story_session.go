// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/google/uuid"
)

// StorySession 故事创作会话
//
// Scenes 是会话唯一可变的内容字段，每个阶段整体覆盖写入；为 nil 表示故事尚未生成。
type StorySession struct {
	ID              uint64    `json:"-" gorm:"primaryKey;autoIncrement"`
	UUID            string    `json:"uuid" gorm:"type:varchar(36);uniqueIndex;not null"`
	InitialBriefing string    `json:"initial_briefing" gorm:"type:text;not null"`
	SceneCount      int       `json:"scene_count" gorm:"not null"`
	Scenes          Scenes    `json:"scenes"`
	Version         int64     `json:"version" gorm:"not null;default:1"`
	CreatedAt       time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (StorySession) TableName() string {
	return "story_sessions"
}

// NewStorySession 创建新会话，UUID 在首次持久化之前分配
func NewStorySession(briefing string, sceneCount int, scenes Scenes) *StorySession {
	now := time.Now()
	return &StorySession{
		UUID:            uuid.NewString(),
		InitialBriefing: briefing,
		SceneCount:      sceneCount,
		Scenes:          scenes,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// HasStory 是否已有可用故事
func (s *StorySession) HasStory() bool {
	return len(s.Scenes) > 0
}

// ReplaceScenes 整体替换故事内容
func (s *StorySession) ReplaceScenes(scenes Scenes) {
	s.Scenes = scenes
	s.UpdatedAt = time.Now()
}

// ArtStyleSuggestion 画风建议（不持久化）
type ArtStyleSuggestion struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ImagePrompt string `json:"imagePrompt"`
	ImageURL    string `json:"imageUrl"`
}
