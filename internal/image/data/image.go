package data

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	creditsdata "github.com/shrinkray/image-optimizer-backend/internal/credits/data"
	"github.com/shrinkray/image-optimizer-backend/internal/image/biz"
	"github.com/shrinkray/image-optimizer-backend/internal/pkg/database"
	apperrors "github.com/shrinkray/image-optimizer-backend/internal/pkg/errors"
	"github.com/shrinkray/image-optimizer-backend/internal/pkg/logger"
	redispkg "github.com/shrinkray/image-optimizer-backend/internal/pkg/redis"
)

// ImagePO is the persistence object for the images table
type ImagePO struct {
	ID               string     `gorm:"type:uuid;primaryKey"`
	OriginalFilename string     `gorm:"size:512;not null"`
	OriginalPath     string     `gorm:"size:512;not null;uniqueIndex"`
	OptimizedPath    string     `gorm:"size:512;not null;uniqueIndex"`
	ContentType      string     `gorm:"size:128;not null"`
	OriginalSize     int64      `gorm:"not null"`
	OptimizedSize    *int64
	OptimizedAt      time.Time `gorm:"not null"`
	UserID           *string   `gorm:"type:uuid;index"`
	CreditsUsed      *int64
	ExpiresAt        *time.Time `gorm:"index"`
	CreatedAt        time.Time  `gorm:"autoCreateTime"`
}

// TableName specifies the table name for ImagePO
func (ImagePO) TableName() string {
	return "images"
}

func (po *ImagePO) toDomain() *biz.Image {
	img := &biz.Image{
		ID:               po.ID,
		OriginalFilename: po.OriginalFilename,
		OriginalPath:     po.OriginalPath,
		OptimizedPath:    po.OptimizedPath,
		ContentType:      po.ContentType,
		OriginalSize:     po.OriginalSize,
		OptimizedAt:      po.OptimizedAt,
		UserID:           po.UserID,
		CreditsUsed:      po.CreditsUsed,
		ExpiresAt:        po.ExpiresAt,
		CreatedAt:        po.CreatedAt,
	}
	if po.OptimizedSize != nil {
		img.OptimizedSize = *po.OptimizedSize
	}
	return img
}

func fromDomain(img *biz.Image) *ImagePO {
	optimizedSize := img.OptimizedSize
	return &ImagePO{
		ID:               img.ID,
		OriginalFilename: img.OriginalFilename,
		OriginalPath:     img.OriginalPath,
		OptimizedPath:    img.OptimizedPath,
		ContentType:      img.ContentType,
		OriginalSize:     img.OriginalSize,
		OptimizedSize:    &optimizedSize,
		OptimizedAt:      img.OptimizedAt,
		UserID:           img.UserID,
		CreditsUsed:      img.CreditsUsed,
		ExpiresAt:        img.ExpiresAt,
		CreatedAt:        img.CreatedAt,
	}
}

type imageRepo struct {
	db              *database.DB
	rdb             *redispkg.Client
	startingCredits int64
	logger          *logger.Logger
}

// NewImageRepo creates the gorm-backed image metadata repository.
// startingCredits seeds the credits account of a user uploading for
// the first time.
func NewImageRepo(db *database.DB, rdb *redispkg.Client, startingCredits int64, log *logger.Logger) biz.ImageRepo {
	return &imageRepo{
		db:              db,
		rdb:             rdb,
		startingCredits: startingCredits,
		logger:          log,
	}
}

func (r *imageRepo) Create(ctx context.Context, img *biz.Image) error {
	return r.db.WithContext(ctx).Create(fromDomain(img)).Error
}

// CreateWithCreditDebit debits the user's balance and inserts the
// image row in one transaction. The debit is a conditional update so
// two concurrent uploads cannot spend the same credit.
func (r *imageRepo) CreateWithCreditDebit(ctx context.Context, img *biz.Image, userID string) error {
	credits := int64(1)
	if img.CreditsUsed != nil {
		credits = *img.CreditsUsed
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// seed the account on first contact so a fresh user's starting
		// grant covers the upload
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(&creditsdata.UserCreditsPO{UserID: userID, Balance: r.startingCredits}).Error; err != nil {
			return err
		}

		res := tx.Model(&creditsdata.UserCreditsPO{}).
			Where("user_id = ? AND balance >= ?", userID, credits).
			Updates(map[string]interface{}{
				"balance":    gorm.Expr("balance - ?", credits),
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.New(apperrors.ErrInsufficientCredits)
		}
		return tx.Create(fromDomain(img)).Error
	})
	if err != nil {
		return err
	}

	// drop the cached balance so the next read sees the debit
	if _, delErr := r.rdb.Del(ctx, creditsdata.BalanceCacheKey(userID)); delErr != nil {
		r.logger.Warn("failed to invalidate credits cache",
			zap.String("user_id", userID), zap.Error(delErr))
	}
	return nil
}

func (r *imageRepo) GetByID(ctx context.Context, id string) (*biz.Image, error) {
	var po ImagePO
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&po).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, apperrors.New(apperrors.ErrImageNotFound)
		}
		return nil, err
	}
	return po.toDomain(), nil
}

func (r *imageRepo) List(ctx context.Context, userID string, offset, limit int) ([]*biz.Image, int64, error) {
	query := r.db.WithContext(ctx).Model(&ImagePO{})
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var pos []ImagePO
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&pos).Error
	if err != nil {
		return nil, 0, err
	}

	images := make([]*biz.Image, 0, len(pos))
	for i := range pos {
		images = append(images, pos[i].toDomain())
	}
	return images, total, nil
}

func (r *imageRepo) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]*biz.Image, error) {
	var pos []ImagePO
	err := r.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", cutoff).
		Order("expires_at ASC").
		Limit(limit).
		Find(&pos).Error
	if err != nil {
		return nil, err
	}

	images := make([]*biz.Image, 0, len(pos))
	for i := range pos {
		images = append(images, pos[i].toDomain())
	}
	return images, nil
}

func (r *imageRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&ImagePO{}).Error
}
