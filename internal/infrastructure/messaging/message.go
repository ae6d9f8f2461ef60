// Package messaging 会话事件流：生产者把事件写入 Redis Stream，job-worker 通过消费者组归档
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"storyboard-ai-api/internal/domain/entity"
	"storyboard-ai-api/pkg/tracer"
)

// payloadField 流条目中存放信封 JSON 的字段名
const payloadField = "data"

// Header 消息头键
type Header string

const (
	HeaderRequestID Header = "request_id"
	HeaderTraceID   Header = "trace_id"
)

// Message 流中 data 字段承载的信封
type Message struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	SessionID   string            `json:"session_id"`
	Payload     json.RawMessage   `json:"payload"`
	Headers     map[string]string `json:"headers,omitempty"`
	PublishedAt time.Time         `json:"published_at"`
}

// newEventMessage 把会话事件装入信封，并带上请求与链路标识
func newEventMessage(ctx context.Context, event *entity.SessionEvent) (*Message, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode session event: %w", err)
	}
	msg := &Message{
		ID:          event.ID,
		Type:        string(event.Type),
		SessionID:   event.SessionUUID,
		Payload:     body,
		PublishedAt: time.Now().UTC(),
	}
	msg.setHeader(HeaderRequestID, event.RequestID)
	msg.setHeader(HeaderTraceID, tracer.TraceID(ctx))
	return msg, nil
}

func (m *Message) setHeader(h Header, value string) {
	if value == "" {
		return
	}
	if m.Headers == nil {
		m.Headers = make(map[string]string, 2)
	}
	m.Headers[string(h)] = value
}

// Header 读取消息头，不存在时返回空串
func (m *Message) Header(h Header) string {
	return m.Headers[string(h)]
}

// SessionEvent 解出信封中的会话事件；事件本身缺少 request_id 时取消息头
func (m *Message) SessionEvent() (*entity.SessionEvent, error) {
	var event entity.SessionEvent
	if err := json.Unmarshal(m.Payload, &event); err != nil {
		return nil, fmt.Errorf("decode session event %s: %w", m.ID, err)
	}
	if event.RequestID == "" {
		event.RequestID = m.Header(HeaderRequestID)
	}
	return &event, nil
}

// Stream 流名称
type Stream string

const (
	StreamSessionEvents Stream = "stream:storyboard:session"
)

// DeadLetter 对应的死信流
func (s Stream) DeadLetter() string {
	return "dlq:" + string(s)
}

// ConsumerGroup 消费者组名称
type ConsumerGroup string

const (
	ConsumerGroupArchiver ConsumerGroup = "cg-session-archiver"
)

// RetryPolicy 失败消息的指数退避
type RetryPolicy struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// DefaultRetryPolicy 1s 起步，每次翻倍，最长 1 分钟
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Initial: time.Second, Max: time.Minute, Multiplier: 2}
}

// Delay 第 attempt 次重试前应等待的时长
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return p.Initial
	}
	d := float64(p.Initial) * math.Pow(p.Multiplier, float64(attempt))
	if p.Max > 0 && d >= float64(p.Max) {
		return p.Max
	}
	return time.Duration(d)
}
