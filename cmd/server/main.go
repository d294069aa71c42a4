package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/limnoscan/specimen-processor/api/handlers"
	"github.com/limnoscan/specimen-processor/api/routes"
	"github.com/limnoscan/specimen-processor/config"
	"github.com/limnoscan/specimen-processor/internal/service/upload"
	"github.com/limnoscan/specimen-processor/pkg/logger"
)

func main() {
	appConfig := config.GetAppConfig()

	// init logger
	log, err := logger.NewLogger(
		logger.WithLevel(appConfig.LogLevel),
		logger.WithEncoding("json"),
		logger.WithOutputPaths([]string{"stdout", "logs/app.log"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// init upload service
	uploadService, err := upload.GetService(log)
	if err != nil {
		log.Fatal("Failed to get upload service", logger.Error(err))
	}

	// init handlers
	h := handlers.NewHandlers(uploadService, log)
	r := gin.New()
	r.Use(gin.Recovery())
	routes.SetupRoutes(r, h)

	srv := &http.Server{
		Addr:    appConfig.ServerAddr,
		Handler: r,
	}

	// start server
	go func() {
		log.Info("Server starting", logger.String("addr", appConfig.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error", logger.Error(err))
		}
	}()

	// wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", logger.Error(err))
	}
}
