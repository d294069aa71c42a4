package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/limnoscan/specimen-processor/config"
	"github.com/limnoscan/specimen-processor/internal/service/upload"
	"github.com/limnoscan/specimen-processor/pkg/logger"
	"github.com/limnoscan/specimen-processor/pkg/worker"
)

func main() {
	appConfig := config.GetAppConfig()
	redisConfig := config.GetRedisConfig()

	// init logger
	log, err := logger.NewLogger(
		logger.WithLevel(appConfig.LogLevel),
		logger.WithEncoding("json"),
		logger.WithOutputPaths([]string{"stdout", "logs/worker.log"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// init upload service
	uploadService, err := upload.GetService(log)
	if err != nil {
		log.Error("Failed to create upload service", logger.Error(err))
		os.Exit(1)
	}

	workerConfig := &worker.Config{
		RedisAddr:   redisConfig.Addr,
		RedisDB:     redisConfig.DB,
		Concurrency: appConfig.Worker.Concurrency,
		Queues: map[string]int{
			"default": 1,
		},
	}

	ingestWorker, err := worker.NewIngestWorker(workerConfig, uploadService, log)
	if err != nil {
		log.Error("Failed to create ingest worker", logger.Error(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ingestWorker.Start(ctx); err != nil {
		log.Error("Failed to start worker", logger.Error(err))
		os.Exit(1)
	}

	// wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down worker...")
	ingestWorker.Stop()
	log.Info("Worker stopped")
}
