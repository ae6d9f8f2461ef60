// Package main 建表工具：按配置连接 PostgreSQL 或 SQLite，迁移会话与事件表
package main

import (
	"context"
	"flag"
	"time"

	"github.com/joho/godotenv"

	"storyboard-ai-api/internal/config"
	"storyboard-ai-api/internal/wire"
	"storyboard-ai-api/pkg/logger"
)

func main() {
	configDir := flag.String("config", "", "配置目录，默认读取 CONFIG_DIR 或 ./configs")
	timeout := flag.Duration("timeout", 2*time.Minute, "迁移超时时间")
	flag.Parse()

	_ = godotenv.Load()

	var (
		cfg *config.Config
		err error
	)
	if *configDir != "" {
		cfg, err = config.LoadFrom(*configDir)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		logger.Fatal(context.Background(), "load config", err)
	}
	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client, cleanup, err := wire.InitializePostgresOnly(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "connect database", err)
	}
	defer cleanup()

	logger.Info(ctx, "migrating schema", "driver", client.Driver())
	if err := client.Migrate(ctx); err != nil {
		cleanup()
		logger.Fatal(ctx, "migrate schema", err, "driver", client.Driver())
	}
	logger.Info(ctx, "schema ready", "driver", client.Driver())
}
