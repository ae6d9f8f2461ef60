package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// SessionEventType 会话事件类型
type SessionEventType string

const (
	SessionEventStoryCreated          SessionEventType = "story.created"
	SessionEventStoryRefined          SessionEventType = "story.refined"
	SessionEventIllustrationFinalized SessionEventType = "illustration.finalized"
)

// EventPayload 事件摘要
type EventPayload map[string]any

// Value 实现 driver.Valuer
func (p EventPayload) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner
func (p *EventPayload) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*p = nil
		return nil
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return fmt.Errorf("unsupported payload column type %T", value)
	}
}

// GormDBDataType 按方言选择列类型
func (EventPayload) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	return jsonColumnType(db)
}

// SessionEvent 会话变更事件（由 job-worker 落库，用于审计回看）
type SessionEvent struct {
	ID          string           `json:"id" gorm:"type:varchar(36);primaryKey"`
	SessionUUID string           `json:"session_id" gorm:"type:varchar(36);index;not null"`
	Type        SessionEventType `json:"type" gorm:"type:varchar(64);not null"`
	Payload     EventPayload     `json:"payload"`
	RequestID   string           `json:"request_id,omitempty" gorm:"type:varchar(64)"`
	CreatedAt   time.Time        `json:"created_at" gorm:"index"`
}

// TableName 指定表名
func (SessionEvent) TableName() string {
	return "session_events"
}

// NewSessionEvent 创建会话事件
func NewSessionEvent(sessionUUID string, eventType SessionEventType, payload EventPayload) *SessionEvent {
	return &SessionEvent{
		ID:          uuid.NewString(),
		SessionUUID: sessionUUID,
		Type:        eventType,
		Payload:     payload,
		CreatedAt:   time.Now(),
	}
}
