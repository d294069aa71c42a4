package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	cfg "github.com/limnoscan/specimen-processor/config"
)

// TaskTypeUploadIngest is the task type for ingesting one uploaded archive.
const TaskTypeUploadIngest = "upload:ingest"

// ErrAlreadyQueued means an ingestion task for this upload is already in
// flight.
var ErrAlreadyQueued = errors.New("upload already queued for ingestion")

// IngestPayload is the task payload for TaskTypeUploadIngest.
type IngestPayload struct {
	UploadID string `json:"uploadId"`
}

// Queue enqueues ingestion work.
type Queue interface {
	EnqueueIngest(ctx context.Context, uploadID string) error
	ClearInFlight(ctx context.Context, uploadID string) error
}

// AsynqQueue is the Redis-backed queue implementation.
type AsynqQueue struct {
	client *asynq.Client
	redis  *redis.Client
}

// Config defines queue configuration
type Config struct {
	RedisAddr      string
	RedisDB        int
	ProcessTimeout time.Duration
}

// GetQueue builds the queue from environment configuration.
func GetQueue() (*AsynqQueue, error) {
	redisConfig := cfg.GetRedisConfig()
	return NewAsynqQueue(&Config{
		RedisAddr:      redisConfig.Addr,
		RedisDB:        redisConfig.DB,
		ProcessTimeout: 30 * time.Minute,
	})
}

// NewAsynqQueue creates a new queue instance
func NewAsynqQueue(config *Config) (*AsynqQueue, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr: config.RedisAddr,
		DB:   config.RedisDB,
	}

	return &AsynqQueue{
		client: asynq.NewClient(redisOpt),
		redis: redis.NewClient(&redis.Options{
			Addr: config.RedisAddr,
			DB:   config.RedisDB,
		}),
	}, nil
}

func inflightKey(uploadID string) string {
	return fmt.Sprintf("ingest_inflight:%s", uploadID)
}

// EnqueueIngest enqueues the ingestion task for one upload. A Redis SETNX
// guard keeps the same upload from being enqueued twice while a task for
// it is still in flight.
func (q *AsynqQueue) EnqueueIngest(ctx context.Context, uploadID string) error {
	ok, err := q.redis.SetNX(ctx, inflightKey(uploadID), 1, 24*time.Hour).Result()
	if err != nil {
		return fmt.Errorf("failed to set in-flight guard: %w", err)
	}
	if !ok {
		return ErrAlreadyQueued
	}

	payload, err := json.Marshal(IngestPayload{UploadID: uploadID})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	// Ingestion is not retried: a failed job is terminal in the lifecycle
	// and a retry could not transition it again.
	task := asynq.NewTask(TaskTypeUploadIngest, payload,
		asynq.TaskID(uploadID),
		asynq.MaxRetry(0),
		asynq.Timeout(30*time.Minute),
		asynq.Queue("default"),
	)

	if _, err := q.client.EnqueueContext(ctx, task); err != nil {
		q.redis.Del(ctx, inflightKey(uploadID))
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	return nil
}

// ClearInFlight releases the enqueue guard once the worker is done with
// the upload.
func (q *AsynqQueue) ClearInFlight(ctx context.Context, uploadID string) error {
	if err := q.redis.Del(ctx, inflightKey(uploadID)).Err(); err != nil {
		return fmt.Errorf("failed to clear in-flight guard: %w", err)
	}
	return nil
}

// Close releases the queue's connections.
func (q *AsynqQueue) Close() error {
	if err := q.client.Close(); err != nil {
		return err
	}
	return q.redis.Close()
}
