package upload

import (
	"context"
	"mime/multipart"

	"github.com/limnoscan/specimen-processor/internal/models"
)

// UploadService accepts archives, tracks their lifecycle and drives
// ingestion.
type UploadService interface {
	AcceptArchive(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*models.Upload, error)
	AcceptBatch(ctx context.Context, files []*multipart.FileHeader) ([]*models.Upload, error)
	GetUpload(ctx context.Context, uploadID string) (*models.Upload, error)
	ListItemFilenames(ctx context.Context, uploadID string) ([]string, error)
	ProcessUpload(ctx context.Context, uploadID string) error
}
