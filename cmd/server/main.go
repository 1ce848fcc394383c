package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/shrinkray/image-optimizer-backend/internal/auth"
	"github.com/shrinkray/image-optimizer-backend/internal/conf"
	creditsbiz "github.com/shrinkray/image-optimizer-backend/internal/credits/biz"
	creditsdata "github.com/shrinkray/image-optimizer-backend/internal/credits/data"
	creditsservice "github.com/shrinkray/image-optimizer-backend/internal/credits/service"
	"github.com/shrinkray/image-optimizer-backend/internal/data"
	imagebiz "github.com/shrinkray/image-optimizer-backend/internal/image/biz"
	imagedata "github.com/shrinkray/image-optimizer-backend/internal/image/data"
	imageservice "github.com/shrinkray/image-optimizer-backend/internal/image/service"
	"github.com/shrinkray/image-optimizer-backend/internal/image/sweeper"
	"github.com/shrinkray/image-optimizer-backend/internal/image/transform"
	"github.com/shrinkray/image-optimizer-backend/internal/pkg/logger"
	"github.com/shrinkray/image-optimizer-backend/internal/pkg/workerpool"
	"github.com/shrinkray/image-optimizer-backend/internal/server"
)

var (
	configFile = flag.String("config", "config.yaml", "config file path")
)

func main() {
	flag.Parse()

	// Load configuration
	config, err := conf.LoadConfig(*configFile)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger with config
	logConfig := &logger.Config{
		Level:            config.Log.Level,
		Format:           config.Log.Format,
		Output:           config.Log.Output,
		EnableCaller:     config.Log.EnableCaller,
		EnableStacktrace: config.Log.EnableStacktrace,
		File: logger.FileConfig{
			Filename:   config.Log.File.Filename,
			MaxSize:    config.Log.File.MaxSize,
			MaxAge:     config.Log.File.MaxAge,
			MaxBackups: config.Log.File.MaxBackups,
			Compress:   config.Log.File.Compress,
		},
	}

	log, err := logger.New(logConfig)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	// Initialize global logger
	if err := logger.InitGlobal(logConfig); err != nil {
		log.Fatal("failed to initialize global logger", zap.Error(err))
	}

	log.Info("config loaded successfully")

	// Initialize data layer
	d, cleanup, err := data.NewData(config, log)
	if err != nil {
		log.Fatal("failed to initialize data layer", zap.Error(err))
	}
	defer cleanup()

	// Initialize transform worker pool
	pool, err := workerpool.New(&workerpool.Config{
		Workers: config.Optimize.TransformWorkers,
	}, log.Logger)
	if err != nil {
		log.Fatal("failed to initialize worker pool", zap.Error(err))
	}
	defer pool.Release()

	// Initialize repositories
	imageRepo := imagedata.NewImageRepo(d.DB, d.Redis, config.Optimize.StartingCredits, log)
	creditsRepo := creditsdata.NewCreditsRepo(d.DB, d.Redis, log)
	storage := imagedata.NewObjectStorage(d.MinIO, config.MinIO.Bucket, config.MinIO.PublicBaseURL)

	// Select the transform strategy once at startup
	var transformer transform.Transformer
	if config.Optimize.Passthrough {
		transformer = transform.NewPassthrough()
		log.Warn("image transform disabled, running in passthrough mode")
	} else {
		transformer = transform.NewJPEG(&transform.Config{
			MaxDimension: config.Optimize.MaxDimension,
			JPEGQuality:  config.Optimize.JPEGQuality,
		})
	}

	// Initialize use cases
	optimizeUseCase := imagebiz.NewOptimizeUseCase(imageRepo, storage, transformer, pool, imagebiz.Config{
		MaxUploadBytes:   config.Optimize.MaxUploadBytes,
		TransformTimeout: config.Optimize.TransformTimeout,
		Retention:        config.Optimize.Retention,
	}, log)
	creditsUseCase := creditsbiz.NewCreditsUseCase(creditsRepo, config.Optimize.StartingCredits, log)

	// Start the expiry sweeper when a retention window is configured
	if config.Optimize.Retention > 0 {
		sw := sweeper.New(optimizeUseCase, d.Redis, config.Optimize.SweepInterval, log)
		sw.Start()
		defer sw.Stop()
	}

	// Initialize services
	jwtManager := auth.NewJWTManager(config.Auth.JWTSecret, config.Auth.JWTIssuer)
	imageService := imageservice.NewImageService(optimizeUseCase, config.Optimize.MaxUploadBytes, log)
	creditsService := creditsservice.NewCreditsService(creditsUseCase, log)

	httpServer := server.NewHTTPServer(config, log, jwtManager, imageService, creditsService)

	go func() {
		if err := httpServer.Start(); err != nil {
			log.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	log.Info("server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Stop(ctx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}
