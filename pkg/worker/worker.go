package worker

import (
	"context"
	"sync"

	"github.com/hibiken/asynq"

	"github.com/limnoscan/specimen-processor/pkg/logger"
)

type Worker interface {
	Start(ctx context.Context) error
	Stop() error
}

type Config struct {
	RedisAddr   string
	RedisDB     int
	Concurrency int
	Queues      map[string]int
}

type BaseWorker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	logger   logger.Logger
	stopChan chan struct{}
	stopOnce sync.Once
}

// Stop drains in-flight tasks before shutting the server down, so a
// half-ingested upload is not abandoned mid-pipeline on deploys.
// Idempotent: context cancellation and an explicit call may race.
func (w *BaseWorker) Stop() error {
	w.stopOnce.Do(func() {
		close(w.stopChan)
		w.server.Shutdown()
	})
	return nil
}
