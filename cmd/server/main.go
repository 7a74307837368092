package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/dating-api/internal/cache"
	"github.com/dating-api/internal/config"
	"github.com/dating-api/internal/storage"
	"github.com/dating-api/internal/store"
)

func main() {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to read .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, closeLog, err := newLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()

	gin.SetMode(cfg.GetGINMode())

	ctx := context.Background()

	st, err := store.Open(ctx, cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to open database: %v", err)
	}
	defer st.Close()
	logger.WithField("type", cfg.Database.Type).Info("Database ready")

	c, err := cache.New(ctx, cfg.Cache, logger)
	if err != nil {
		logger.Fatalf("Failed to set up cache: %v", err)
	}
	defer c.Close()
	logger.WithField("type", cfg.Cache.Type).Info("Cache ready")

	images, err := storage.NewService(cfg.Storage, logger)
	if err != nil {
		logger.Fatalf("Failed to create image store client: %v", err)
	}
	if err := images.EnsureBucket(ctx); err != nil {
		// uploads fail with 502 until the store comes back
		logger.WithError(err).Warn("Image store bucket check failed")
	} else {
		logger.WithField("bucket", cfg.Storage.MinIO.BucketName).Info("Image store ready")
	}

	router := newRouter(newApp(cfg, logger, st, images, c))

	srv := &http.Server{
		Addr:           cfg.Server.Address,
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logger.Infof("Starting server on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

// newLogger builds the process logger. The returned func closes the log file
// when output points at one.
func newLogger(cfg config.LoggingConfig) (*logrus.Logger, func(), error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	closeFn := func() {}
	var out io.Writer
	switch cfg.Output {
	case "", "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeFn = func() { _ = f.Close() }
	}
	logger.SetOutput(out)

	return logger, closeFn, nil
}
