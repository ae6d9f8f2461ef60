package wire

import (
	"context"

	"storyboard-ai-api/internal/application/storyboard"
	"storyboard-ai-api/internal/config"
	"storyboard-ai-api/internal/infrastructure/imagegen"
	"storyboard-ai-api/internal/infrastructure/messaging"
	"storyboard-ai-api/internal/infrastructure/persistence/postgres"
	"storyboard-ai-api/internal/infrastructure/persistence/redis"
	"storyboard-ai-api/internal/interfaces/http/handler"
	workflowport "storyboard-ai-api/internal/workflow/port"
	"storyboard-ai-api/pkg/logger"
)

// WorkerLayer job-worker 依赖容器
type WorkerLayer struct {
	RedisClient *redis.Client
	Archiver    *storyboard.EventArchiver
}

// ProvideDatabaseClient 提供数据库客户端（postgres 或 sqlite）
func ProvideDatabaseClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端；cache.redis.enabled=false 时返回 nil
func ProvideRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		logger.Warn(ctx, "redis disabled, falling back to in-process session locks")
		return nil, func() {}, nil
	}
	return ProvideRequiredRedisClient(cfg)
}

// ProvideRequiredRedisClient worker 必须连接 Redis
func ProvideRequiredRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideSessionLocker Redis 可用时使用分布式锁，否则使用进程内锁
func ProvideSessionLocker(cfg *config.Config, client *redis.Client) storyboard.SessionLocker {
	if client == nil {
		return storyboard.NewLocalLocker()
	}
	return redis.NewSessionLocker(client, cfg.Session.LockPrefix, cfg.Session.LockTTL)
}

// ProvideEventPublisher 启用消息流时发布到 Redis Stream 由 job-worker 落库，否则同步落库
func ProvideEventPublisher(cfg *config.Config, client *redis.Client, archiver *storyboard.EventArchiver) storyboard.EventPublisher {
	if client == nil || !cfg.Messaging.RedisStream.Enabled {
		return archiver
	}
	return messaging.NewProducer(client.Redis(), int64(cfg.Messaging.RedisStream.MaxLen))
}

// ProvideImageGenerator 提供图像生成器
func ProvideImageGenerator(cfg *config.Config) (workflowport.ImageGenerator, error) {
	return imagegen.New(&cfg.Image)
}

// ProvideHealthHandler 提供健康检查处理器
func ProvideHealthHandler(cfg *config.Config, db *postgres.Client, redisClient *redis.Client) *handler.HealthHandler {
	return handler.NewHealthHandler(db, redisClient, cfg.App.Version)
}
