package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/limnoscan/specimen-processor/internal/service/upload"
	"github.com/limnoscan/specimen-processor/pkg/logger"
)

type UploadHandler struct {
	service upload.UploadService
	logger  logger.Logger
}

// UploadResponse describes one accepted archive
type UploadResponse struct {
	UploadID  string `json:"uploadId"`
	State     string `json:"state"`
	Filename  string `json:"filename"`
	CreatedAt string `json:"createdAt"`
}

// ErrorResponse describes a failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func NewUploadHandler(service upload.UploadService, log logger.Logger) *UploadHandler {
	return &UploadHandler{
		service: service,
		logger:  log,
	}
}

// AcceptArchive accepts a single archive upload
func (h *UploadHandler) AcceptArchive(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid file upload", err)
		return
	}
	defer file.Close()

	u, err := h.service.AcceptArchive(c.Request.Context(), file, header)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to accept archive", err)
		return
	}

	c.JSON(http.StatusOK, UploadResponse{
		UploadID:  u.ID.String(),
		State:     string(u.State),
		Filename:  u.OriginalFilename,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	})
}

// AcceptBatch accepts several archives at once
func (h *UploadHandler) AcceptBatch(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid form data", err)
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		h.handleError(c, http.StatusBadRequest, "No files provided", nil)
		return
	}

	uploads, err := h.service.AcceptBatch(c.Request.Context(), files)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to accept archives", err)
		return
	}

	responses := make([]UploadResponse, len(uploads))
	for i, u := range uploads {
		responses[i] = UploadResponse{
			UploadID:  u.ID.String(),
			State:     string(u.State),
			Filename:  u.OriginalFilename,
			CreatedAt: u.CreatedAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Accepted %d archives", len(uploads)),
		"uploads": responses,
	})
}

// GetStatus returns the upload's lifecycle state and result summary
func (h *UploadHandler) GetStatus(c *gin.Context) {
	uploadID := c.Param("uploadId")
	if uploadID == "" {
		h.handleError(c, http.StatusBadRequest, "Upload ID is required", nil)
		return
	}

	u, err := h.service.GetUpload(c.Request.Context(), uploadID)
	if err != nil {
		h.handleError(c, http.StatusNotFound, "Upload not found", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"uploadId":      u.ID.String(),
		"state":         string(u.State),
		"filename":      u.OriginalFilename,
		"resultSummary": u.ResultSummary,
		"createdAt":     u.CreatedAt.Format(time.RFC3339),
		"updatedAt":     u.UpdatedAt.Format(time.RFC3339),
	})
}

// ListFilenames returns the item filenames an archive would produce
func (h *UploadHandler) ListFilenames(c *gin.Context) {
	uploadID := c.Param("uploadId")
	if uploadID == "" {
		h.handleError(c, http.StatusBadRequest, "Upload ID is required", nil)
		return
	}

	filenames, err := h.service.ListItemFilenames(c.Request.Context(), uploadID)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to list filenames", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"uploadId":  uploadID,
		"filenames": filenames,
	})
}

// handleError logs and renders a uniform error response
func (h *UploadHandler) handleError(c *gin.Context, status int, message string, err error) {
	h.logger.Error(message,
		logger.String("path", c.Request.URL.Path),
		logger.Error(err),
	)

	response := ErrorResponse{Message: message}
	if err != nil {
		response.Error = err.Error()
	}

	c.JSON(status, response)
}
