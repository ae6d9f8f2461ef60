package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Scene 故事分镜
//
// 角色外观描述与生成后的角色图片 URL 分开存放；背景描述在终稿插画后清空，
// 原文保留在 BackgroundArchive 中。
type Scene struct {
	ID                   int    `json:"id"`
	Narrator             string `json:"narrator"`
	Character            string `json:"character"`
	CharacterDescription string `json:"characterDescription"`
	CharacterImageURL    string `json:"characterImageUrl,omitempty"`
	Dialogue             string `json:"dialogue"`
	BackgroundPrompt     string `json:"backgroundPrompt"`
	BackgroundArchive    string `json:"backgroundArchive,omitempty"`
}

// Illustrated 是否已生成角色插画
func (s Scene) Illustrated() bool {
	return s.CharacterImageURL != ""
}

// CharacterImagePrompt 对外兼容字段：插画后为图片 URL，之前为外观描述
func (s Scene) CharacterImagePrompt() string {
	if s.Illustrated() {
		return s.CharacterImageURL
	}
	return s.CharacterDescription
}

// BackgroundText 背景描述，已清空时回退到归档文本
func (s Scene) BackgroundText() string {
	if s.BackgroundPrompt != "" {
		return s.BackgroundPrompt
	}
	return s.BackgroundArchive
}

// Scenes 有序分镜列表，以单列 JSON 存储
type Scenes []Scene

// Clone 深拷贝
func (s Scenes) Clone() Scenes {
	if s == nil {
		return nil
	}
	out := make(Scenes, len(s))
	copy(out, s)
	return out
}

// Value 实现 driver.Valuer
func (s Scenes) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner
func (s *Scenes) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported scenes column type %T", value)
	}
	if len(raw) == 0 {
		*s = nil
		return nil
	}
	return json.Unmarshal(raw, s)
}

// GormDataType 解析模型时按普通列处理，避免被识别为关联
func (Scenes) GormDataType() string {
	return "json"
}

// GormDBDataType 按方言选择列类型
func (Scenes) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	return jsonColumnType(db)
}

func jsonColumnType(db *gorm.DB) string {
	if db.Dialector.Name() == "postgres" {
		return "jsonb"
	}
	return "text"
}
