package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"storyboard-ai-api/internal/domain/entity"
	"storyboard-ai-api/pkg/metrics"
)

var otelTracer = otel.Tracer("messaging")

const defaultStreamMaxLen int64 = 100000

// Producer 以 XADD 写入会话事件流，流长度近似裁剪到 maxLen
type Producer struct {
	client *redis.Client
	maxLen int64
}

func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = defaultStreamMaxLen
	}
	return &Producer{client: client, maxLen: maxLen}
}

// PublishSessionEvent 实现服务层的事件发布接口
func (p *Producer) PublishSessionEvent(ctx context.Context, event *entity.SessionEvent) error {
	msg, err := newEventMessage(ctx, event)
	if err != nil {
		return err
	}
	_, err = p.publish(ctx, StreamSessionEvents, msg)
	return err
}

// publish 返回 Redis 分配的条目 ID
func (p *Producer) publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := otelTracer.Start(ctx, "messaging.publish", trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.destination", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("encode message %s: %w", msg.ID, err)
	}

	entryID, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{payloadField: string(data)},
	}).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "xadd failed")
		metrics.RedisStreamPublished.WithLabelValues(string(stream), "error").Inc()
		return "", fmt.Errorf("publish to %s: %w", stream, err)
	}

	metrics.RedisStreamPublished.WithLabelValues(string(stream), "success").Inc()
	span.SetAttributes(attribute.String("messaging.entry_id", entryID))
	return entryID, nil
}
