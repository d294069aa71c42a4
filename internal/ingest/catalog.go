package ingest

import (
	"context"
	"path/filepath"

	"github.com/limnoscan/specimen-processor/internal/models"
	"github.com/limnoscan/specimen-processor/pkg/logger"
	"github.com/limnoscan/specimen-processor/pkg/storage"
)

// ItemStore is the structured-store collaborator: one insert per item,
// returning the store-assigned identifier.
type ItemStore interface {
	Insert(ctx context.Context, item *models.Item) (string, error)
}

// Writer persists enriched items. Per item it first inserts the record,
// then uploads the image blob named from the assigned id. Items are
// independent units of work: a failure partway through leaves the already
// written prefix committed in both stores.
type Writer struct {
	items  ItemStore
	blobs  storage.BlobStore // nil skips all blob operations
	logger logger.Logger
}

func NewWriter(items ItemStore, blobs storage.BlobStore, log logger.Logger) *Writer {
	return &Writer{items: items, blobs: blobs, logger: log}
}

// Write catalogs the items, uploading each image from dataDir, and returns
// the result summary counters.
func (w *Writer) Write(ctx context.Context, groupID, dataDir string, items []*models.Item) (map[string]int, error) {
	container := storage.ContainerName(groupID)
	if w.blobs != nil {
		if err := w.blobs.EnsureContainer(ctx, container); err != nil {
			return nil, wrapError(KindStorage, err)
		}
	}

	for _, item := range items {
		itemID, err := w.items.Insert(ctx, item)
		if err != nil {
			return nil, wrapError(KindStoreWrite, err)
		}

		if w.blobs == nil {
			continue
		}

		// The blob name depends on the id assigned above, so the upload
		// can only ever follow its item's insert.
		blobName := storage.BlobName(itemID, item.Extension)
		imagePath := filepath.Join(dataDir, item.Filename)
		metadata := map[string]string{"filename": item.Filename}
		if err := w.blobs.Upload(ctx, container, blobName, imagePath, metadata); err != nil {
			return nil, wrapError(KindStorage, err)
		}

		w.logger.Debug("Cataloged item",
			logger.String("itemId", itemID),
			logger.String("blob", blobName),
		)
	}

	return map[string]int{"items": len(items)}, nil
}
