package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/limnoscan/specimen-processor/api/handlers"
	"github.com/limnoscan/specimen-processor/api/middleware"
)

// SetupRoutes wires all API routes
func SetupRoutes(r *gin.Engine, h *handlers.Handlers) {
	r.Use(middleware.CORS())

	v1 := r.Group("/api/v1")

	uploads := v1.Group("/uploads")
	{
		uploads.POST("", h.Upload.AcceptArchive)
		uploads.POST("/batch", h.Upload.AcceptBatch)
		uploads.GET("/:uploadId", h.Upload.GetStatus)
		uploads.GET("/:uploadId/filenames", h.Upload.ListFilenames)
	}
}
