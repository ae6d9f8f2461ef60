package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyboard-ai-api/internal/domain/entity"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func newTestConsumer(rdb *redis.Client, retryLimit int) *Consumer {
	return NewConsumer(rdb, ConsumerConfig{
		Stream:       StreamSessionEvents,
		Group:        ConsumerGroupArchiver,
		ConsumerName: "test-worker",
		BlockTimeout: 50 * time.Millisecond,
		RetryLimit:   retryLimit,
	})
}

func TestProducer_PublishSessionEvent(t *testing.T) {
	ctx := context.Background()
	rdb := newTestRedis(t)
	producer := NewProducer(rdb, 0)

	ev := entity.NewSessionEvent("sess-1", entity.SessionEventStoryCreated, entity.EventPayload{"scene_count": 3})
	ev.RequestID = "req-1"
	require.NoError(t, producer.PublishSessionEvent(ctx, ev))

	msgs, err := rdb.XRange(ctx, string(StreamSessionEvents), "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	msg, ok := decodeMessage(msgs[0])
	require.True(t, ok)
	assert.Equal(t, ev.ID, msg.ID)
	assert.Equal(t, string(entity.SessionEventStoryCreated), msg.Type)
	assert.Equal(t, "sess-1", msg.SessionID)
	assert.Equal(t, "req-1", msg.Header(HeaderRequestID))

	decoded, err := msg.SessionEvent()
	require.NoError(t, err)
	assert.Equal(t, ev.SessionUUID, decoded.SessionUUID)
	assert.Equal(t, ev.Type, decoded.Type)
}

func TestConsumer_DispatchesAndAcks(t *testing.T) {
	ctx := context.Background()
	rdb := newTestRedis(t)
	consumer := newTestConsumer(rdb, 3)
	require.NoError(t, consumer.ensureGroup(ctx))
	// 重复创建消费者组不报错
	require.NoError(t, consumer.ensureGroup(ctx))

	var got []string
	consumer.RegisterHandler(string(entity.SessionEventStoryRefined), func(ctx context.Context, msg *Message) error {
		got = append(got, msg.SessionID)
		return nil
	})

	producer := NewProducer(rdb, 100)
	require.NoError(t, producer.PublishSessionEvent(ctx, entity.NewSessionEvent("sess-2", entity.SessionEventStoryRefined, nil)))
	// 无处理器的类型直接确认
	require.NoError(t, producer.PublishSessionEvent(ctx, entity.NewSessionEvent("sess-3", entity.SessionEventType("unknown"), nil)))

	require.NoError(t, consumer.readOnce(ctx))
	assert.Equal(t, []string{"sess-2"}, got)

	pending, err := rdb.XPending(ctx, string(StreamSessionEvents), string(ConsumerGroupArchiver)).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 0, pending.Count)
}

func TestConsumer_FailureBeyondRetryLimitGoesToDLQ(t *testing.T) {
	ctx := context.Background()
	rdb := newTestRedis(t)
	consumer := newTestConsumer(rdb, 1)
	require.NoError(t, consumer.ensureGroup(ctx))

	consumer.RegisterHandler(string(entity.SessionEventStoryCreated), func(ctx context.Context, msg *Message) error {
		return errors.New("db down")
	})

	producer := NewProducer(rdb, 100)
	require.NoError(t, producer.PublishSessionEvent(ctx, entity.NewSessionEvent("sess-4", entity.SessionEventStoryCreated, nil)))

	require.NoError(t, consumer.readOnce(ctx))

	dlq, err := rdb.XLen(ctx, StreamSessionEvents.DeadLetter()).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, dlq)

	pending, err := rdb.XPending(ctx, string(StreamSessionEvents), string(ConsumerGroupArchiver)).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 0, pending.Count)
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{Initial: 100 * time.Millisecond, Max: time.Second, Multiplier: 2}
	assert.Equal(t, 100*time.Millisecond, p.Delay(0))
	assert.Equal(t, 400*time.Millisecond, p.Delay(2))
	assert.Equal(t, time.Second, p.Delay(10))
}

func TestMessage_SessionEventFallsBackToHeader(t *testing.T) {
	ev := entity.NewSessionEvent("sess-9", entity.SessionEventStoryRefined, nil)
	msg, err := newEventMessage(context.Background(), ev)
	require.NoError(t, err)
	msg.Headers = map[string]string{string(HeaderRequestID): "req-from-header"}

	decoded, err := msg.SessionEvent()
	require.NoError(t, err)
	assert.Equal(t, "req-from-header", decoded.RequestID)
	assert.Equal(t, "sess-9", decoded.SessionUUID)
}
