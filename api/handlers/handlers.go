package handlers

import (
	"github.com/limnoscan/specimen-processor/internal/service/upload"
	"github.com/limnoscan/specimen-processor/pkg/logger"
)

type Handlers struct {
	Upload *UploadHandler
}

func NewHandlers(
	uploadService upload.UploadService,
	log logger.Logger,
) *Handlers {
	return &Handlers{
		Upload: NewUploadHandler(uploadService, log),
	}
}
