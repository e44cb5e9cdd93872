package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"dealersync/server/config"
	"dealersync/server/internal/api"
	"dealersync/server/internal/crawler"
	"dealersync/server/internal/database"
	"dealersync/server/internal/database/staging"
	"dealersync/server/internal/media"
	"dealersync/server/internal/notify"
	"dealersync/server/internal/retry"
	"dealersync/server/internal/scheduler"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		logger.WithError(err).Fatal("Failed to create database directory")
	}
	logger.Infof("Using database at: %s", cfg.DatabasePath)

	db, err := database.NewDatabase(cfg.DatabasePath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	stagingStore, err := staging.Open(cfg.DatabasePath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open staging store")
	}

	if err := config.LoadVendors(cfg.VendorsPath, cfg); err != nil {
		logger.WithError(err).Fatal("Failed to load vendor registry")
	}
	logger.Infof("Loaded %d vendors (%d enabled)", len(config.Vendors()), len(config.EnabledVendors()))

	// The media store is optional: without credentials the crawler still
	// runs and vehicles keep their vendor-hosted image URLs.
	var mediaStore media.Store
	if cfg.Media.Endpoint != "" {
		minioStore, err := media.NewMinioStore(cfg.Media.Endpoint, cfg.Media.AccessKey, cfg.Media.SecretKey, cfg.Media.Bucket, cfg.Media.UseSSL)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize media store")
		}
		if err := minioStore.EnsureBucket(context.Background()); err != nil {
			logger.WithError(err).Fatal("Failed to ensure media bucket")
		}
		mediaStore = minioStore
	} else {
		logger.Warn("Media store is not configured; image migration is disabled")
	}

	notifier := notify.NewService(notify.Config{
		BotToken:  cfg.Telegram.BotToken,
		ChatID:    cfg.Telegram.ChatID,
		IsEnabled: cfg.Telegram.Enabled,
	}, logger)

	httpClient := &http.Client{Timeout: time.Duration(cfg.Crawl.TimeoutSeconds) * time.Second}
	orchestrator := crawler.NewOrchestrator(db, stagingStore, notifier, httpClient, logger)

	policy := retry.Policy{
		Attempts:   cfg.Images.RetryAttempts,
		Delay:      time.Duration(cfg.Images.RetryDelayMS) * time.Millisecond,
		Multiplier: 2,
	}
	pipeline := media.NewPipeline(db, mediaStore, httpClient, policy, cfg.Images.BatchSize, logger)

	sched := scheduler.NewScheduler(orchestrator, pipeline, logger)
	sched.Start()
	defer sched.Stop()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	router.Use(cors.New(corsConfig))

	handler := api.NewHandler(db, stagingStore, orchestrator, pipeline, logger)
	api.SetupRoutes(router, handler)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}
	go func() {
		logger.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Forced server shutdown")
	}
}
