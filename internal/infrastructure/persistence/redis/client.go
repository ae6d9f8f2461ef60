// Package redis 会话锁与事件流共用的 Redis 连接
package redis

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"storyboard-ai-api/internal/config"
)

var tracer = otel.Tracer("redis")

const connectTimeout = 5 * time.Second

// Client 对 go-redis 的薄封装，供就绪检查和锁使用
type Client struct {
	rdb *redis.Client
}

// NewClient 按配置建立连接，连不上直接返回错误
func NewClient(cfg *config.RedisConfig) (*Client, error) {
	opts := &redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	c := Wrap(redis.NewClient(opts))

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		_ = c.rdb.Close()
		return nil, fmt.Errorf("connect redis %s: %w", opts.Addr, err)
	}
	return c, nil
}

// Wrap 复用已有连接（测试中配合 miniredis）
func Wrap(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Redis 底层连接，事件流生产者与消费者直接使用
func (c *Client) Redis() *redis.Client {
	return c.rdb
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// HealthCheck 就绪检查
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "redis.HealthCheck")
	defer span.End()

	if err := c.rdb.Ping(ctx).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ping failed")
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
