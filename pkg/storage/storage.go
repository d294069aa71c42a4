package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/limnoscan/specimen-processor/pkg/logger"
	"github.com/limnoscan/specimen-processor/pkg/storage/minio"
	"github.com/limnoscan/specimen-processor/pkg/storage/s3"
)

// StorageType selects the blob backend.
type StorageType string

const (
	StorageTypeS3    StorageType = "s3"
	StorageTypeMinio StorageType = "minio"
)

// UploadContainer is the fixed container raw archives land in before
// processing. Item assets go to per-group containers instead.
const UploadContainer = "upload"

// BlobStore is the blob storage collaborator of the ingestion pipeline.
// Containers hold named blobs; container names come from ContainerName.
type BlobStore interface {
	// Download fetches a blob to a local file.
	Download(ctx context.Context, container, blobName, destPath string) error
	// Upload stores a local file as a blob with optional metadata.
	Upload(ctx context.Context, container, blobName, srcPath string, metadata map[string]string) error
	// Exists reports whether the container exists.
	Exists(ctx context.Context, container string) (bool, error)
	// EnsureContainer creates the container if it is absent.
	EnsureContainer(ctx context.Context, container string) error
}

// ContainerName maps a logical group identifier to its container name.
// The mapping is pure: the same group always yields the same container.
func ContainerName(groupID string) string {
	return "group-" + strings.ToLower(groupID)
}

// BlobName derives the blob name for an item asset from the item's
// store-assigned identifier and its file extension.
func BlobName(itemID, extension string) string {
	if extension == "" {
		return itemID
	}
	return itemID + "." + extension
}

// NewBlobStore creates a blob store for the given backend type.
func NewBlobStore(storageType StorageType, log logger.Logger) (BlobStore, error) {
	switch storageType {
	case StorageTypeS3:
		return s3.GetClient(log)
	case StorageTypeMinio:
		return minio.GetClient(log)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}
