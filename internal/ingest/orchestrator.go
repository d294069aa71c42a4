package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/limnoscan/specimen-processor/internal/models"
	"github.com/limnoscan/specimen-processor/pkg/logger"
	"github.com/limnoscan/specimen-processor/pkg/storage"
)

// LifecycleStore is the upload-job collaborator the orchestrator reports
// progress through.
type LifecycleStore interface {
	UpdateState(ctx context.Context, uploadID string, state models.UploadState, summary map[string]int) error
}

// Orchestrator runs the ingestion pipeline for one upload: download and
// extract, parse the manifest, enrich with image metadata, catalog. All
// work happens inside a scoped temporary directory that is removed on
// every exit path.
type Orchestrator struct {
	uploads  LifecycleStore
	unpacker *Unpacker
	parser   Parser
	enricher Enricher
	writer   *Writer
	logger   logger.Logger
}

func NewOrchestrator(uploads LifecycleStore, items ItemStore, blobs storage.BlobStore, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		uploads:  uploads,
		unpacker: NewUnpacker(blobs, log),
		writer:   NewWriter(items, blobs, log),
		logger:   log,
	}
}

// Run ingests one uploaded archive. Expected operational failures mark the
// job failed and are swallowed; anything else still marks the job failed
// but is returned to the caller, because it is a bug rather than a bad
// upload.
func (o *Orchestrator) Run(ctx context.Context, uploadID string) error {
	// Flip to processing before touching the archive so a crash mid-way
	// is observable as a job stuck in processing.
	if err := o.uploads.UpdateState(ctx, uploadID, models.UploadStateProcessing, nil); err != nil {
		return err
	}

	summary, err := o.ingest(ctx, uploadID)
	if err != nil {
		if stateErr := o.uploads.UpdateState(ctx, uploadID, models.UploadStateFailed, nil); stateErr != nil {
			o.logger.Error("Failed to mark upload as failed",
				logger.String("uploadId", uploadID),
				logger.Error(stateErr),
			)
		}

		if kind, recognized := KindOf(err); recognized {
			o.logger.Warn("Upload ingestion failed",
				logger.String("uploadId", uploadID),
				logger.String("kind", string(kind)),
				logger.Error(err),
			)
			return nil
		}
		return err
	}

	if err := o.uploads.UpdateState(ctx, uploadID, models.UploadStateFinished, summary); err != nil {
		return err
	}

	o.logger.Info("Upload ingested",
		logger.String("uploadId", uploadID),
		logger.Int("items", summary["items"]),
	)
	return nil
}

func (o *Orchestrator) ingest(ctx context.Context, uploadID string) (map[string]int, error) {
	tmpDir, err := os.MkdirTemp("", "ingest-")
	if err != nil {
		return nil, wrapError(KindIO, err)
	}
	defer os.RemoveAll(tmpDir)

	dataDir, records, err := o.stage(ctx, uploadID, tmpDir)
	if err != nil {
		return nil, err
	}

	items, err := o.enricher.Enrich(dataDir, records)
	if err != nil {
		return nil, err
	}

	return o.writer.Write(ctx, uploadID, dataDir, items)
}

// ListItemFilenames is the read-only pre-flight variant: it extracts and
// parses the archive without touching either store and returns the item
// filenames in manifest order. Expected failures yield an empty list.
func (o *Orchestrator) ListItemFilenames(ctx context.Context, uploadID string) ([]string, error) {
	tmpDir, err := os.MkdirTemp("", "ingest-")
	if err != nil {
		return nil, wrapError(KindIO, err)
	}
	defer os.RemoveAll(tmpDir)

	dataDir, records, err := o.stage(ctx, uploadID, tmpDir)
	if err == nil {
		var items []*models.Item
		items, err = o.enricher.Enrich(dataDir, records)
		if err == nil {
			filenames := make([]string, len(items))
			for i, item := range items {
				filenames[i] = item.Filename
			}
			return filenames, nil
		}
	}

	var ingestErr *Error
	if errors.As(err, &ingestErr) {
		return []string{}, nil
	}
	return nil, err
}

// stage downloads, extracts and parses the archive inside tmpDir.
func (o *Orchestrator) stage(ctx context.Context, uploadID, tmpDir string) (string, []Record, error) {
	localPath := filepath.Join(tmpDir, "archive")
	extractionDir := filepath.Join(tmpDir, "extracted")

	if err := o.unpacker.Unpack(ctx, uploadID, storage.UploadContainer, localPath, extractionDir); err != nil {
		return "", nil, err
	}

	dataDir, err := resolveDataDir(extractionDir)
	if err != nil {
		return "", nil, err
	}

	records, err := o.parser.Parse(dataDir, uploadID)
	if err != nil {
		return "", nil, err
	}
	return dataDir, records, nil
}

// resolveDataDir locates the archive's data directory. Exactly one
// top-level directory is required; anything else is a malformed archive.
func resolveDataDir(extractionDir string) (string, error) {
	entries, err := os.ReadDir(extractionDir)
	if err != nil {
		return "", wrapError(KindIO, err)
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		return "", newError(KindBadArchive, "archive must contain exactly one top-level directory, found %d entries", len(entries))
	}
	return filepath.Join(extractionDir, entries[0].Name()), nil
}
