//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"storyboard-ai-api/internal/application/storyboard"
	"storyboard-ai-api/internal/config"
	"storyboard-ai-api/internal/domain/repository"
	"storyboard-ai-api/internal/infrastructure/llm"
	"storyboard-ai-api/internal/infrastructure/persistence/postgres"
	"storyboard-ai-api/internal/interfaces/http/handler"
	"storyboard-ai-api/internal/interfaces/http/router"
	workflowport "storyboard-ai-api/internal/workflow/port"
)

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		WorkflowSet,
		StoryboardSet,
		RouterSet,
	)
	return nil, nil, nil
}

// InitializeWorker 初始化事件归档 worker 依赖
func InitializeWorker(ctx context.Context, cfg *config.Config) (*WorkerLayer, func(), error) {
	wire.Build(
		RepoSet,
		ProvideRequiredRedisClient,
		storyboard.NewEventArchiver,
		wire.Struct(new(WorkerLayer), "*"),
	)
	return nil, nil, nil
}

// InitializePostgresOnly 仅初始化数据库（用于 bootstrap 迁移）
func InitializePostgresOnly(ctx context.Context, cfg *config.Config) (*postgres.Client, func(), error) {
	wire.Build(ProvideDatabaseClient)
	return nil, nil, nil
}

// PostgresSet 数据库提供者集合
var PostgresSet = wire.NewSet(
	ProvideDatabaseClient,
	postgres.NewStorySessionRepository,
	postgres.NewSessionEventRepository,
)

// RepoSet 整合了具体实现与接口绑定的集合
var RepoSet = wire.NewSet(
	PostgresSet,
	wire.Bind(new(repository.StorySessionRepository), new(*postgres.StorySessionRepository)),
	wire.Bind(new(repository.SessionEventRepository), new(*postgres.SessionEventRepository)),
)

// RedisSet Redis 提供者集合（未启用时退化为进程内锁 + 丢弃事件）
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	ProvideSessionLocker,
	storyboard.NewEventArchiver,
	ProvideEventPublisher,
)

// WorkflowSet 模型与图像生成
var WorkflowSet = wire.NewSet(
	llm.NewEinoFactory,
	wire.Bind(new(workflowport.ChatModelFactory), new(*llm.EinoFactory)),
	ProvideImageGenerator,
)

// StoryboardSet 故事编排服务
var StoryboardSet = wire.NewSet(
	storyboard.NewOptions,
	storyboard.NewStoryGenerator,
	storyboard.NewArtStyleGenerator,
	storyboard.NewIllustrator,
	storyboard.NewService,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	wire.Bind(new(handler.StoryService), new(*storyboard.Service)),
	ProvideHealthHandler,
	handler.NewStoryHandler,
	wire.Struct(new(router.RouterHandlers), "*"),
	router.NewWithDeps,
)
