package main

import (
	"context"
	"flag"
	"time"

	"go.uber.org/zap"

	"github.com/shrinkray/image-optimizer-backend/internal/conf"
	"github.com/shrinkray/image-optimizer-backend/internal/data"
	imagebiz "github.com/shrinkray/image-optimizer-backend/internal/image/biz"
	imagedata "github.com/shrinkray/image-optimizer-backend/internal/image/data"
	"github.com/shrinkray/image-optimizer-backend/internal/image/sweeper"
	"github.com/shrinkray/image-optimizer-backend/internal/image/transform"
	"github.com/shrinkray/image-optimizer-backend/internal/pkg/logger"
	"github.com/shrinkray/image-optimizer-backend/internal/pkg/workerpool"
)

// One-shot sweep of expired images, for cron-style scheduling when the
// in-process sweeper is not running.

var (
	configFile = flag.String("config", "config.yaml", "config file path")
	timeout    = flag.Duration("timeout", 5*time.Minute, "overall sweep deadline")
)

func main() {
	flag.Parse()

	config, err := conf.LoadConfig(*configFile)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  config.Log.Level,
		Format: "console",
		Output: "console",
	})
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	d, cleanup, err := data.NewData(config, log)
	if err != nil {
		log.Fatal("failed to initialize data layer", zap.Error(err))
	}
	defer cleanup()

	pool, err := workerpool.New(&workerpool.Config{Workers: 1}, log.Logger)
	if err != nil {
		log.Fatal("failed to initialize worker pool", zap.Error(err))
	}
	defer pool.Release()

	imageRepo := imagedata.NewImageRepo(d.DB, d.Redis, config.Optimize.StartingCredits, log)
	storage := imagedata.NewObjectStorage(d.MinIO, config.MinIO.Bucket, config.MinIO.PublicBaseURL)

	uc := imagebiz.NewOptimizeUseCase(imageRepo, storage, transform.NewPassthrough(), pool, imagebiz.Config{
		Retention: config.Optimize.Retention,
	}, log)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	sw := sweeper.New(uc, d.Redis, config.Optimize.SweepInterval, log)
	if err := sw.Sweep(ctx); err != nil {
		log.Fatal("sweep failed", zap.Error(err))
	}

	log.Info("sweep finished")
}
