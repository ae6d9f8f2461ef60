package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"storyboard-ai-api/pkg/logger"
	"storyboard-ai-api/pkg/metrics"
)

var errRetriesExhausted = errors.New("retries exhausted")

const (
	readBatchSize    = 10
	pendingBatchSize = 20
	minReclaimIdle   = 5 * time.Minute
)

// MessageHandler 返回错误时消息留在 PEL 中等待重试
type MessageHandler func(ctx context.Context, msg *Message) error

// ConsumerConfig 零值字段取默认值
type ConsumerConfig struct {
	Stream        Stream
	Group         ConsumerGroup
	ConsumerName  string
	BlockTimeout  time.Duration
	ClaimInterval time.Duration
	RetryLimit    int
	Retry         RetryPolicy
}

// Consumer 消费者组成员。
//
// 失败的消息不会立即确认：到达退避时间后由本消费者重新认领处理；
// 投递次数达到 RetryLimit 后写入死信流并确认。其他成员长时间未确认的消息会被接管。
type Consumer struct {
	client *redis.Client
	cfg    ConsumerConfig
	// reclaimIdle 接管他人消息前要求的最小空闲时长
	reclaimIdle time.Duration

	mu       sync.RWMutex
	handlers map[string]MessageHandler
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewConsumer(client *redis.Client, cfg ConsumerConfig) *Consumer {
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = 5 * time.Second
	}
	if cfg.ClaimInterval <= 0 {
		cfg.ClaimInterval = 30 * time.Second
	}
	if cfg.RetryLimit <= 0 {
		cfg.RetryLimit = 3
	}
	if cfg.Retry.Initial <= 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	return &Consumer{
		client:      client,
		cfg:         cfg,
		reclaimIdle: max(minReclaimIdle, 2*cfg.Retry.Max),
		handlers:    make(map[string]MessageHandler),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// RegisterHandler 按消息类型注册；没有处理器的类型直接确认
func (c *Consumer) RegisterHandler(msgType string, handler MessageHandler) {
	c.mu.Lock()
	c.handlers[msgType] = handler
	c.mu.Unlock()
}

// Start 创建消费者组（已存在则忽略）并在后台开始消费
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return errors.New("consumer already running")
	}
	c.running = true
	c.mu.Unlock()

	if err := c.ensureGroup(ctx); err != nil {
		return err
	}
	go c.loop(ctx)
	return nil
}

// Stop 通知消费循环退出并等待其结束
func (c *Consumer) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stopCh)
	c.mu.Unlock()
	<-c.doneCh
}

func (c *Consumer) ensureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, string(c.cfg.Stream), string(c.cfg.Group), "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group %s: %w", c.cfg.Group, err)
	}
	return nil
}

func (c *Consumer) loop(ctx context.Context) {
	defer close(c.doneCh)

	log := logger.FromContext(ctx).With("stream", c.cfg.Stream, "group", c.cfg.Group, "consumer", c.cfg.ConsumerName)
	log.Info("consumer started")

	nextReclaim := time.Now()
	for {
		select {
		case <-ctx.Done():
			log.Info("consumer stopped", "reason", ctx.Err())
			return
		case <-c.stopCh:
			log.Info("consumer stopped")
			return
		default:
		}

		c.retryDue(ctx)
		if now := time.Now(); !now.Before(nextReclaim) {
			c.reclaimStale(ctx)
			nextReclaim = now.Add(c.cfg.ClaimInterval)
		}

		if err := c.readOnce(ctx); err != nil && ctx.Err() == nil {
			log.Error("read stream failed", "error", err)
			time.Sleep(time.Second)
		}
	}
}

// readOnce 阻塞读取一批新消息
func (c *Consumer) readOnce(ctx context.Context) error {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    string(c.cfg.Group),
		Consumer: c.cfg.ConsumerName,
		Streams:  []string{string(c.cfg.Stream), ">"},
		Count:    readBatchSize,
		Block:    c.cfg.BlockTimeout,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, s := range streams {
		for _, entry := range s.Messages {
			c.dispatch(ctx, entry)
		}
	}
	return nil
}

func (c *Consumer) dispatch(ctx context.Context, entry redis.XMessage) {
	stream := string(c.cfg.Stream)
	ctx, span := otelTracer.Start(ctx, "messaging.process", trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.destination", stream),
			attribute.String("messaging.entry_id", entry.ID),
		))
	defer span.End()

	msg, ok := decodeMessage(entry)
	if !ok {
		logger.Error(ctx, "undecodable stream entry dropped", nil, "entry_id", entry.ID)
		metrics.RedisStreamProcessed.WithLabelValues(stream, "invalid").Inc()
		c.ack(ctx, entry.ID)
		return
	}
	ctx = withMessageContext(ctx, msg)
	span.SetAttributes(
		attribute.String("message.id", msg.ID),
		attribute.String("message.type", msg.Type),
		attribute.String("session.id", msg.SessionID),
	)

	c.mu.RLock()
	handler := c.handlers[msg.Type]
	c.mu.RUnlock()
	if handler == nil {
		logger.Warn(ctx, "no handler registered, message acked", "type", msg.Type)
		metrics.RedisStreamProcessed.WithLabelValues(stream, "skipped").Inc()
		c.ack(ctx, entry.ID)
		return
	}

	if err := handler(ctx, msg); err != nil {
		span.RecordError(err)
		logger.Error(ctx, "message handler failed", err, "message_id", msg.ID)
		metrics.RedisStreamProcessed.WithLabelValues(stream, "error").Inc()
		c.onFailure(ctx, entry.ID, msg, err)
		return
	}
	metrics.RedisStreamProcessed.WithLabelValues(stream, "success").Inc()
	c.ack(ctx, entry.ID)
}

// withMessageContext 把消息头中的链路标识带入日志上下文
func withMessageContext(ctx context.Context, msg *Message) context.Context {
	if msg.SessionID != "" {
		ctx = logger.WithContext(ctx, logger.SessionIDKey, msg.SessionID)
	}
	if v := msg.Header(HeaderRequestID); v != "" {
		ctx = logger.WithContext(ctx, logger.RequestIDKey, v)
	}
	if v := msg.Header(HeaderTraceID); v != "" {
		ctx = logger.WithContext(ctx, logger.TraceIDKey, v)
	}
	return ctx
}

func decodeMessage(entry redis.XMessage) (*Message, bool) {
	raw, ok := entry.Values[payloadField].(string)
	if !ok {
		return nil, false
	}
	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return nil, false
	}
	return &msg, true
}

func (c *Consumer) ack(ctx context.Context, entryID string) {
	if err := c.client.XAck(ctx, string(c.cfg.Stream), string(c.cfg.Group), entryID).Err(); err != nil {
		logger.Error(ctx, "xack failed", err, "entry_id", entryID)
	}
}

// onFailure 投递次数未到上限时什么都不做，由 retryDue 在退避后重新处理
func (c *Consumer) onFailure(ctx context.Context, entryID string, msg *Message, cause error) {
	deliveries := c.deliveries(ctx, entryID)
	if deliveries < c.cfg.RetryLimit {
		logger.Info(ctx, "message pending retry", "message_id", msg.ID, "deliveries", deliveries)
		return
	}
	logger.Warn(ctx, "message dead-lettered", "message_id", msg.ID, "deliveries", deliveries)
	c.deadLetter(ctx, msg, cause)
	c.ack(ctx, entryID)
}

// deliveries 该条目在 PEL 中记录的投递次数
func (c *Consumer) deliveries(ctx context.Context, entryID string) int {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: string(c.cfg.Stream),
		Group:  string(c.cfg.Group),
		Start:  entryID,
		End:    entryID,
		Count:  1,
	}).Result()
	if err != nil || len(pending) == 0 {
		return 0
	}
	return int(pending[0].RetryCount)
}

func (c *Consumer) deadLetter(ctx context.Context, msg *Message, cause error) {
	record, _ := json.Marshal(map[string]any{
		"original_stream": string(c.cfg.Stream),
		payloadField:      msg,
		"error":           cause.Error(),
		"failed_at":       time.Now().Unix(),
	})
	err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.cfg.Stream.DeadLetter(),
		Values: map[string]any{payloadField: string(record)},
	}).Err()
	if err != nil {
		logger.Error(ctx, "write dead letter failed", err, "message_id", msg.ID)
		return
	}
	metrics.RedisStreamProcessed.WithLabelValues(string(c.cfg.Stream), "dead_letter").Inc()
}

func (c *Consumer) pending(ctx context.Context, owner string) []redis.XPendingExt {
	args := &redis.XPendingExtArgs{
		Stream:   string(c.cfg.Stream),
		Group:    string(c.cfg.Group),
		Start:    "-",
		End:      "+",
		Count:    pendingBatchSize,
		Consumer: owner,
	}
	entries, err := c.client.XPendingExt(ctx, args).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		logger.Error(ctx, "xpending failed", err)
	}
	return entries
}

func (c *Consumer) claim(ctx context.Context, entryID string, minIdle time.Duration) []redis.XMessage {
	claimed, err := c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   string(c.cfg.Stream),
		Group:    string(c.cfg.Group),
		Consumer: c.cfg.ConsumerName,
		MinIdle:  minIdle,
		Messages: []string{entryID},
	}).Result()
	if err != nil {
		logger.Error(ctx, "xclaim failed", err, "entry_id", entryID)
		return nil
	}
	return claimed
}

// settle 处理已认领的条目：超过重试上限的进死信流，其余重新分发
func (c *Consumer) settle(ctx context.Context, claimed []redis.XMessage, exhausted bool) {
	for _, entry := range claimed {
		if !exhausted {
			c.dispatch(ctx, entry)
			continue
		}
		if msg, ok := decodeMessage(entry); ok {
			c.deadLetter(ctx, msg, errRetriesExhausted)
		}
		c.ack(ctx, entry.ID)
	}
}

// retryDue 重新处理本消费者名下退避已到期的消息
func (c *Consumer) retryDue(ctx context.Context) {
	for _, p := range c.pending(ctx, c.cfg.ConsumerName) {
		exhausted := int(p.RetryCount) >= c.cfg.RetryLimit
		wait := time.Duration(0)
		if !exhausted {
			wait = c.cfg.Retry.Delay(int(p.RetryCount))
			if p.Idle < wait {
				continue
			}
		}
		c.settle(ctx, c.claim(ctx, p.ID, wait), exhausted)
	}
}

// reclaimStale 接管其他成员空闲过久的消息，通常是该成员已经退出
func (c *Consumer) reclaimStale(ctx context.Context) {
	for _, p := range c.pending(ctx, "") {
		if p.Consumer == c.cfg.ConsumerName || p.Idle < c.reclaimIdle {
			continue
		}
		c.settle(ctx, c.claim(ctx, p.ID, c.reclaimIdle), int(p.RetryCount) >= c.cfg.RetryLimit)
	}
}

// MonitorDLQ 每分钟检查一次死信流长度，超过阈值时告警
func (c *Consumer) MonitorDLQ(ctx context.Context, alertThreshold int64) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	dlq := c.cfg.Stream.DeadLetter()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			n, err := c.client.XLen(ctx, dlq).Result()
			if err == nil && n > alertThreshold {
				logger.Warn(ctx, "dead letter stream growing", "stream", dlq, "count", n)
			}
		}
	}
}
