package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/limnoscan/specimen-processor/internal/service/upload"
	"github.com/limnoscan/specimen-processor/pkg/logger"
	"github.com/limnoscan/specimen-processor/pkg/queue"
)

// IngestWorker consumes ingestion tasks; each task runs the full pipeline
// for one upload inside its own scratch directory, so tasks are safe to
// process concurrently.
type IngestWorker struct {
	BaseWorker
	service upload.UploadService
}

func NewIngestWorker(config *Config, service upload.UploadService, log logger.Logger) (*IngestWorker, error) {
	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: config.RedisAddr, DB: config.RedisDB},
		asynq.Config{
			Concurrency: config.Concurrency,
			Queues:      config.Queues,
		},
	)

	w := &IngestWorker{
		BaseWorker: BaseWorker{
			server:   server,
			mux:      asynq.NewServeMux(),
			logger:   log,
			stopChan: make(chan struct{}),
		},
		service: service,
	}

	w.mux.HandleFunc(queue.TaskTypeUploadIngest, w.handleIngest)
	return w, nil
}

func (w *IngestWorker) handleIngest(ctx context.Context, t *asynq.Task) error {
	var payload queue.IngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		w.logger.Error("Failed to unmarshal task payload",
			logger.String("payload", string(t.Payload())),
			logger.Error(err),
		)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if payload.UploadID == "" {
		return fmt.Errorf("invalid task payload: missing upload id")
	}

	w.logger.Info("Processing upload",
		logger.String("uploadId", payload.UploadID),
	)

	return w.service.ProcessUpload(ctx, payload.UploadID)
}

func (w *IngestWorker) Start(ctx context.Context) error {
	go func() {
		if err := w.server.Run(w.mux); err != nil {
			w.logger.Error("Worker server stopped", logger.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		w.Stop()
	}()

	return nil
}
