// Package main 会话事件归档 worker 入口（job-worker）
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"storyboard-ai-api/internal/config"
	"storyboard-ai-api/internal/domain/entity"
	"storyboard-ai-api/internal/infrastructure/messaging"
	"storyboard-ai-api/internal/wire"
	"storyboard-ai-api/pkg/logger"
	"storyboard-ai-api/pkg/tracer"
)

const dlqAlertThreshold = 100

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: "job-worker",
		Version:     cfg.App.Version,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	worker, cleanup, err := wire.InitializeWorker(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize worker", err)
	}
	defer cleanup()

	streamCfg := cfg.Messaging.RedisStream
	consumer := messaging.NewConsumer(worker.RedisClient.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamSessionEvents,
		Group:         messaging.ConsumerGroupArchiver,
		ConsumerName:  hostnameConsumerName(),
		BlockTimeout:  streamCfg.BlockTimeout,
		ClaimInterval: streamCfg.ClaimInterval,
		RetryLimit:    streamCfg.RetryLimit,
		Retry: messaging.RetryPolicy{
			Initial:    streamCfg.RetryBackoff.Initial,
			Max:        streamCfg.RetryBackoff.Max,
			Multiplier: streamCfg.RetryBackoff.Multiplier,
		},
	})

	archive := func(ctx context.Context, msg *messaging.Message) error {
		event, err := msg.SessionEvent()
		if err != nil {
			return err
		}
		return worker.Archiver.Archive(ctx, event)
	}
	for _, t := range []entity.SessionEventType{
		entity.SessionEventStoryCreated,
		entity.SessionEventStoryRefined,
		entity.SessionEventIllustrationFinalized,
	} {
		consumer.RegisterHandler(string(t), archive)
	}

	if err := consumer.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start consumer", err)
	}
	go consumer.MonitorDLQ(ctx, dlqAlertThreshold)

	log := logger.FromContext(ctx)
	log.Info("job-worker started", "stream", string(messaging.StreamSessionEvents))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("job-worker shutting down")
	consumer.Stop()
}

func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
