// Package main 分镜编排 HTTP 服务入口
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"storyboard-ai-api/internal/config"
	einoobs "storyboard-ai-api/internal/observability/eino"
	"storyboard-ai-api/internal/wire"
	"storyboard-ai-api/pkg/logger"
	"storyboard-ai-api/pkg/tracer"
)

// 构建时通过 -ldflags 注入
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if Version != "dev" {
		cfg.App.Version = Version
	}
	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg); err != nil {
		logger.Fatal(context.Background(), "api-gateway exited with error", err)
	}
}

// serve 装配依赖并运行 HTTP 服务，直到 ctx 被信号取消
func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.FromContext(ctx)
	log.Info("starting api-gateway",
		"version", cfg.App.Version,
		"build_time", BuildTime,
		"env", cfg.App.Env,
		"llm_provider", cfg.LLM.DefaultProvider,
		"image_provider", cfg.Image.Provider,
	)

	shutdownTracer, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Warn("tracer shutdown failed", "error", err)
		}
	}()

	einoobs.Register()

	app, cleanup, err := wire.InitializeApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer cleanup()

	httpCfg := cfg.Server.HTTP
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", httpCfg.Host, httpCfg.Port),
		Handler:      app.Engine(),
		ReadTimeout:  httpCfg.ReadTimeout,
		WriteTimeout: httpCfg.WriteTimeout,
		IdleTimeout:  httpCfg.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down http server")
	// 终稿插画可能持续数分钟，给在途请求留出时间
	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpCfg.WriteTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	log.Info("server exited")
	return nil
}
