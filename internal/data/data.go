package data

import (
	"context"
	"fmt"

	"github.com/shrinkray/image-optimizer-backend/internal/conf"
	creditsdata "github.com/shrinkray/image-optimizer-backend/internal/credits/data"
	imagedata "github.com/shrinkray/image-optimizer-backend/internal/image/data"
	"github.com/shrinkray/image-optimizer-backend/internal/pkg/database"
	"github.com/shrinkray/image-optimizer-backend/internal/pkg/logger"
	miniopkg "github.com/shrinkray/image-optimizer-backend/internal/pkg/minio"
	redispkg "github.com/shrinkray/image-optimizer-backend/internal/pkg/redis"
	"go.uber.org/zap"
)

// Data bundles the shared infrastructure clients
type Data struct {
	DB     *database.DB
	Redis  *redispkg.Client
	MinIO  *miniopkg.Client
	Logger *logger.Logger
}

// NewData initializes PostgreSQL, Redis and MinIO and returns a
// cleanup function that closes them in reverse order.
func NewData(config *conf.Config, log *logger.Logger) (*Data, func(), error) {
	db, err := initDB(config, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init database: %w", err)
	}

	rdb, err := redispkg.New(&redispkg.Config{
		Host:     config.Redis.Host,
		Port:     config.Redis.Port,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	}, log)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	minioClient, err := initMinIO(config, log)
	if err != nil {
		rdb.Close()
		db.Close()
		return nil, nil, fmt.Errorf("failed to init minio: %w", err)
	}

	d := &Data{
		DB:     db,
		Redis:  rdb,
		MinIO:  minioClient,
		Logger: log,
	}

	cleanup := func() {
		log.Info("cleaning up data resources")

		if err := rdb.Close(); err != nil {
			log.Warn("failed to close redis client", zap.Error(err))
		}
		if err := db.Close(); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}

	return d, cleanup, nil
}

func initDB(config *conf.Config, log *logger.Logger) (*database.DB, error) {
	dbCfg := database.DefaultConfig()
	dbCfg.Host = config.Database.Host
	dbCfg.Port = config.Database.Port
	dbCfg.User = config.Database.User
	dbCfg.Password = config.Database.Password
	dbCfg.DBName = config.Database.DBName
	dbCfg.SSLMode = config.Database.SSLMode

	db, err := database.New(dbCfg, log)
	if err != nil {
		return nil, err
	}

	// Auto migrate
	if err := db.AutoMigrate(&imagedata.ImagePO{}, &creditsdata.UserCreditsPO{}); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}

	log.Info("database initialized successfully")
	return db, nil
}

func initMinIO(config *conf.Config, log *logger.Logger) (*miniopkg.Client, error) {
	client, err := miniopkg.NewClient(&miniopkg.Config{
		Endpoint:        config.MinIO.Endpoint,
		AccessKeyID:     config.MinIO.AccessKey,
		SecretAccessKey: config.MinIO.SecretKey,
		UseSSL:          config.MinIO.UseSSL,
	}, log.Logger)
	if err != nil {
		return nil, err
	}

	// the images bucket must exist and be publicly readable so object
	// URLs resolve without presigning
	ctx := context.Background()
	if err := client.EnsureBucket(ctx, config.MinIO.Bucket); err != nil {
		return nil, err
	}
	if err := client.SetBucketPublicRead(ctx, config.MinIO.Bucket); err != nil {
		return nil, err
	}

	return client, nil
}
