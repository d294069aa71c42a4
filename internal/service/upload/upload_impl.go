package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/limnoscan/specimen-processor/config"
	"github.com/limnoscan/specimen-processor/internal/ingest"
	"github.com/limnoscan/specimen-processor/internal/models"
	"github.com/limnoscan/specimen-processor/internal/store"
	"github.com/limnoscan/specimen-processor/pkg/logger"
	"github.com/limnoscan/specimen-processor/pkg/queue"
	"github.com/limnoscan/specimen-processor/pkg/storage"
)

type Service struct {
	uploads      *store.UploadStore
	blobs        storage.BlobStore
	queue        queue.Queue
	orchestrator *ingest.Orchestrator
	logger       logger.Logger
}

func NewService(
	uploads *store.UploadStore,
	items *store.ItemStore,
	blobs storage.BlobStore,
	q queue.Queue,
	log logger.Logger,
) UploadService {
	return &Service{
		uploads:      uploads,
		blobs:        blobs,
		queue:        q,
		orchestrator: ingest.NewOrchestrator(uploads, items, blobs, log),
		logger:       log,
	}
}

// GetService wires the service from environment configuration.
func GetService(log logger.Logger) (UploadService, error) {
	db, err := store.Connect()
	if err != nil {
		return nil, fmt.Errorf("failed to connect store: %w", err)
	}

	appConfig := config.GetAppConfig()
	blobs, err := storage.NewBlobStore(storage.StorageType(appConfig.StorageType), log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize blob storage: %w", err)
	}

	q, err := queue.GetQueue()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize queue: %w", err)
	}

	return NewService(store.NewUploadStore(db), store.NewItemStore(db), blobs, q, log), nil
}

// AcceptArchive stores an uploaded archive and queues it for ingestion.
// The archive blob is named after the upload's assigned id and carries the
// original filename as metadata.
func (s *Service) AcceptArchive(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*models.Upload, error) {
	s.logger.Info("Accepting archive",
		logger.String("filename", header.Filename),
		logger.Int64("size", header.Size),
	)

	if err := s.blobs.EnsureContainer(ctx, storage.UploadContainer); err != nil {
		return nil, fmt.Errorf("failed to ensure upload container: %w", err)
	}

	upload, err := s.uploads.Create(ctx, header.Filename)
	if err != nil {
		return nil, err
	}

	if err := s.storeArchive(ctx, upload, file); err != nil {
		return nil, err
	}

	if err := s.uploads.UpdateState(ctx, upload.ID.String(), models.UploadStateUploaded, nil); err != nil {
		return nil, err
	}
	upload.State = models.UploadStateUploaded

	if err := s.queue.EnqueueIngest(ctx, upload.ID.String()); err != nil && !errors.Is(err, queue.ErrAlreadyQueued) {
		return nil, err
	}

	s.logger.Info("Archive accepted",
		logger.String("uploadId", upload.ID.String()),
		logger.String("filename", header.Filename),
	)
	return upload, nil
}

// storeArchive spools the stream to a temp file and uploads it under the
// upload id.
func (s *Service) storeArchive(ctx context.Context, upload *models.Upload, file multipart.File) error {
	tmpDir, err := os.MkdirTemp("", "accept-")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	localPath := filepath.Join(tmpDir, "archive")
	out, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		return fmt.Errorf("failed to spool archive: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	metadata := map[string]string{"filename": upload.OriginalFilename}
	if err := s.blobs.Upload(ctx, storage.UploadContainer, upload.ID.String(), localPath, metadata); err != nil {
		return fmt.Errorf("failed to store archive: %w", err)
	}
	return nil
}

// AcceptBatch accepts several archives concurrently.
func (s *Service) AcceptBatch(ctx context.Context, files []*multipart.FileHeader) ([]*models.Upload, error) {
	uploads := make([]*models.Upload, 0, len(files))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for _, header := range files {
		header := header
		g.Go(func() error {
			file, err := header.Open()
			if err != nil {
				return fmt.Errorf("failed to open file %s: %w", header.Filename, err)
			}
			defer file.Close()

			upload, err := s.AcceptArchive(ctx, file, header)
			if err != nil {
				return fmt.Errorf("failed to accept file %s: %w", header.Filename, err)
			}

			mu.Lock()
			uploads = append(uploads, upload)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return uploads, err
	}
	return uploads, nil
}

// GetUpload returns the upload's current lifecycle state and summary.
func (s *Service) GetUpload(ctx context.Context, uploadID string) (*models.Upload, error) {
	return s.uploads.Get(ctx, uploadID)
}

// ListItemFilenames runs the read-only pre-flight listing for an upload.
func (s *Service) ListItemFilenames(ctx context.Context, uploadID string) ([]string, error) {
	return s.orchestrator.ListItemFilenames(ctx, uploadID)
}

// ProcessUpload runs the ingestion pipeline for one upload. Called from
// the worker.
func (s *Service) ProcessUpload(ctx context.Context, uploadID string) error {
	defer func() {
		if err := s.queue.ClearInFlight(context.Background(), uploadID); err != nil {
			s.logger.Warn("Failed to clear in-flight guard",
				logger.String("uploadId", uploadID),
				logger.Error(err),
			)
		}
	}()

	return s.orchestrator.Run(ctx, uploadID)
}
