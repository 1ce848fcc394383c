package biz

import (
	"context"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shrinkray/image-optimizer-backend/internal/image/transform"
	apperrors "github.com/shrinkray/image-optimizer-backend/internal/pkg/errors"
	"github.com/shrinkray/image-optimizer-backend/internal/pkg/logger"
	"github.com/shrinkray/image-optimizer-backend/internal/pkg/workerpool"
)

// allowedContentTypes is the declared-type allowlist for uploads
var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

// Config holds the optimize pipeline tunables
type Config struct {
	MaxUploadBytes   int64
	TransformTimeout time.Duration
	Retention        time.Duration
	CreditsPerImage  int64
}

// OptimizeInput is one upload to process
type OptimizeInput struct {
	Filename    string
	ContentType string
	Data        []byte
	// UserID is empty for anonymous uploads
	UserID string
}

// OptimizeOutput carries the stored image plus the response fields
// derived from it
type OptimizeOutput struct {
	Image            *Image
	OriginalURL      string
	OptimizedURL     string
	CompressionRatio float64
}

// OptimizeUseCase runs the upload pipeline: transform, store both
// variants, record metadata.
type OptimizeUseCase struct {
	repo        ImageRepo
	storage     ObjectStorage
	transformer transform.Transformer
	pool        *workerpool.Pool
	config      Config
	logger      *logger.Logger
}

func NewOptimizeUseCase(repo ImageRepo, storage ObjectStorage, transformer transform.Transformer, pool *workerpool.Pool, config Config, log *logger.Logger) *OptimizeUseCase {
	if config.CreditsPerImage <= 0 {
		config.CreditsPerImage = 1
	}
	return &OptimizeUseCase{
		repo:        repo,
		storage:     storage,
		transformer: transformer,
		pool:        pool,
		config:      config,
		logger:      log,
	}
}

// Optimize processes one upload end to end and returns the stored
// image with its public URLs. The original object is written before
// the optimized one; if the second write or the metadata insert fails
// the original is left behind for the expiry sweeper to reclaim.
func (uc *OptimizeUseCase) Optimize(ctx context.Context, in *OptimizeInput) (*OptimizeOutput, error) {
	if len(in.Data) == 0 {
		return nil, apperrors.New(apperrors.ErrMissingFile)
	}
	if uc.config.MaxUploadBytes > 0 && int64(len(in.Data)) > uc.config.MaxUploadBytes {
		return nil, apperrors.New(apperrors.ErrFileTooLarge,
			fmt.Sprintf("file exceeds %d bytes", uc.config.MaxUploadBytes))
	}
	if !allowedContentTypes[in.ContentType] {
		return nil, apperrors.New(apperrors.ErrUnsupportedMediaType, in.ContentType)
	}

	filename := SanitizeFilename(in.Filename)
	ext := FileExtension(filename)
	originalKey := "original/" + uuid.NewString() + "." + ext
	optimizedKey := "optimized/" + uuid.NewString() + "." + ext

	result, err := uc.transform(ctx, in.Data, in.ContentType)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTransformFailed)
	}

	if err := uc.storage.Upload(ctx, originalKey, in.Data, in.ContentType); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUploadFailed)
	}
	if err := uc.storage.Upload(ctx, optimizedKey, result.Data, result.ContentType); err != nil {
		// the original object stays; the sweeper deletes it once the
		// retention window passes
		uc.logger.Error("optimized upload failed, original object orphaned",
			zap.String("original_key", originalKey), zap.Error(err))
		return nil, apperrors.Wrap(err, apperrors.ErrUploadFailed)
	}

	now := time.Now().UTC()
	img := &Image{
		ID:               uuid.NewString(),
		OriginalFilename: filename,
		OriginalPath:     originalKey,
		OptimizedPath:    optimizedKey,
		ContentType:      in.ContentType,
		OriginalSize:     int64(len(in.Data)),
		OptimizedSize:    int64(len(result.Data)),
		OptimizedAt:      now,
		CreatedAt:        now,
	}
	if uc.config.Retention > 0 {
		expires := now.Add(uc.config.Retention)
		img.ExpiresAt = &expires
	}

	if in.UserID != "" {
		userID := in.UserID
		credits := uc.config.CreditsPerImage
		img.UserID = &userID
		img.CreditsUsed = &credits
		err = uc.repo.CreateWithCreditDebit(ctx, img, in.UserID)
	} else {
		err = uc.repo.Create(ctx, img)
	}
	if err != nil {
		if apperrors.Is(err, apperrors.ErrInsufficientCredits) {
			return nil, err
		}
		uc.logger.Error("image metadata insert failed",
			zap.String("original_key", originalKey),
			zap.String("optimized_key", optimizedKey), zap.Error(err))
		return nil, apperrors.Wrap(err, apperrors.ErrMetadataWriteFailed)
	}

	uc.logger.Info("image optimized",
		zap.String("image_id", img.ID),
		zap.Int64("original_size", img.OriginalSize),
		zap.Int64("optimized_size", img.OptimizedSize))

	return &OptimizeOutput{
		Image:            img,
		OriginalURL:      uc.storage.PublicURL(originalKey),
		OptimizedURL:     uc.storage.PublicURL(optimizedKey),
		CompressionRatio: CompressionRatio(img.OriginalSize, img.OptimizedSize),
	}, nil
}

// transform runs the transformer on the worker pool with the
// configured deadline
func (uc *OptimizeUseCase) transform(ctx context.Context, data []byte, contentType string) (*transform.Result, error) {
	if uc.config.TransformTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.config.TransformTimeout)
		defer cancel()
	}
	var result *transform.Result
	err := uc.pool.SubmitWait(ctx, func() error {
		var terr error
		result, terr = uc.transformer.Transform(data, contentType)
		return terr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// PublicURL returns the public URL for a stored object key
func (uc *OptimizeUseCase) PublicURL(key string) string {
	return uc.storage.PublicURL(key)
}

// GetByID returns one image's metadata
func (uc *OptimizeUseCase) GetByID(ctx context.Context, id string) (*Image, error) {
	img, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// List returns a page of images, newest first. userID narrows the
// listing to one owner when non-empty.
func (uc *OptimizeUseCase) List(ctx context.Context, userID string, offset, limit int) ([]*Image, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return uc.repo.List(ctx, userID, offset, limit)
}

// Download opens the optimized object for streaming along with its
// metadata
func (uc *OptimizeUseCase) Download(ctx context.Context, id string) (*Image, io.ReadCloser, error) {
	img, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := uc.storage.Download(ctx, img.OptimizedPath)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrInternalServer)
	}
	return img, rc, nil
}

// SweepExpired deletes up to batchSize expired images, removing both
// stored objects before the metadata row. Returns the number of rows
// deleted.
func (uc *OptimizeUseCase) SweepExpired(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	expired, err := uc.repo.ListExpired(ctx, time.Now().UTC(), batchSize)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, img := range expired {
		if err := uc.storage.Remove(ctx, img.OriginalPath); err != nil {
			uc.logger.Warn("failed to remove expired original object",
				zap.String("key", img.OriginalPath), zap.Error(err))
			continue
		}
		if err := uc.storage.Remove(ctx, img.OptimizedPath); err != nil {
			uc.logger.Warn("failed to remove expired optimized object",
				zap.String("key", img.OptimizedPath), zap.Error(err))
			continue
		}
		if err := uc.repo.Delete(ctx, img.ID); err != nil {
			uc.logger.Warn("failed to delete expired image row",
				zap.String("image_id", img.ID), zap.Error(err))
			continue
		}
		deleted++
	}
	if deleted > 0 {
		uc.logger.Info("expired images reclaimed", zap.Int("count", deleted))
	}
	return deleted, nil
}

// SanitizeFilename strips every byte outside printable ASCII so the
// stored name is safe for headers and object metadata
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if r >= 0x20 && r <= 0x7E {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FileExtension returns the filename's extension without the dot,
// lowercased and restricted to [a-z0-9] so it is safe inside a storage
// key. Anything else falls back to "jpg".
func FileExtension(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return "jpg"
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return "jpg"
		}
	}
	return ext
}

// CompressionRatio returns the size reduction as a percentage rounded
// to two decimals. A zero original size yields zero.
func CompressionRatio(originalSize, optimizedSize int64) float64 {
	if originalSize <= 0 {
		return 0
	}
	ratio := float64(originalSize-optimizedSize) / float64(originalSize) * 100
	return math.Round(ratio*100) / 100
}
