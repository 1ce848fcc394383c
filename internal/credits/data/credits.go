package data

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shrinkray/image-optimizer-backend/internal/credits/biz"
	"github.com/shrinkray/image-optimizer-backend/internal/pkg/database"
	apperrors "github.com/shrinkray/image-optimizer-backend/internal/pkg/errors"
	"github.com/shrinkray/image-optimizer-backend/internal/pkg/logger"
	redispkg "github.com/shrinkray/image-optimizer-backend/internal/pkg/redis"
)

// balanceCacheTTL bounds how stale a cached balance can get
const balanceCacheTTL = 5 * time.Minute

// BalanceCacheKey returns the redis key caching a user's balance
func BalanceCacheKey(userID string) string {
	return "credits:balance:" + userID
}

// UserCreditsPO is the persistence object for the user_credits table
type UserCreditsPO struct {
	UserID    string    `gorm:"type:uuid;primaryKey"`
	Balance   int64     `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for UserCreditsPO
func (UserCreditsPO) TableName() string {
	return "user_credits"
}

type creditsRepo struct {
	db     *database.DB
	rdb    *redispkg.Client
	logger *logger.Logger
}

// NewCreditsRepo creates the gorm-backed credits repository with a
// redis read-through cache on the balance
func NewCreditsRepo(db *database.DB, rdb *redispkg.Client, log *logger.Logger) biz.CreditsRepo {
	return &creditsRepo{
		db:     db,
		rdb:    rdb,
		logger: log,
	}
}

func (r *creditsRepo) GetBalance(ctx context.Context, userID string) (int64, error) {
	key := BalanceCacheKey(userID)
	if cached, err := r.rdb.Get(ctx, key); err == nil {
		if balance, perr := strconv.ParseInt(cached, 10, 64); perr == nil {
			return balance, nil
		}
	} else if !redispkg.IsNil(err) {
		r.logger.Warn("credits cache read failed",
			zap.String("user_id", userID), zap.Error(err))
	}

	var po UserCreditsPO
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&po).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return 0, apperrors.New(apperrors.ErrCreditsNotFound)
		}
		return 0, err
	}

	if err := r.rdb.Set(ctx, key, strconv.FormatInt(po.Balance, 10), balanceCacheTTL); err != nil {
		r.logger.Warn("credits cache write failed",
			zap.String("user_id", userID), zap.Error(err))
	}
	return po.Balance, nil
}

func (r *creditsRepo) Debit(ctx context.Context, userID string, amount int64) (int64, error) {
	var remaining int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&UserCreditsPO{}).
			Where("user_id = ? AND balance >= ?", userID, amount).
			Updates(map[string]interface{}{
				"balance":    gorm.Expr("balance - ?", amount),
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var po UserCreditsPO
			if ferr := tx.Where("user_id = ?", userID).First(&po).Error; ferr != nil {
				if database.IsRecordNotFoundError(ferr) {
					return apperrors.New(apperrors.ErrCreditsNotFound)
				}
				return ferr
			}
			return apperrors.New(apperrors.ErrInsufficientCredits)
		}

		var po UserCreditsPO
		if err := tx.Where("user_id = ?", userID).First(&po).Error; err != nil {
			return err
		}
		remaining = po.Balance
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.invalidate(ctx, userID)
	return remaining, nil
}

func (r *creditsRepo) Grant(ctx context.Context, userID string, amount int64) (int64, error) {
	var balance int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"balance":    gorm.Expr("user_credits.balance + ?", amount),
				"updated_at": time.Now().UTC(),
			}),
		}).Create(&UserCreditsPO{UserID: userID, Balance: amount}).Error
		if err != nil {
			return err
		}

		var po UserCreditsPO
		if err := tx.Where("user_id = ?", userID).First(&po).Error; err != nil {
			return err
		}
		balance = po.Balance
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.invalidate(ctx, userID)
	return balance, nil
}

func (r *creditsRepo) EnsureAccount(ctx context.Context, userID string, balance int64) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&UserCreditsPO{UserID: userID, Balance: balance}).Error
}

func (r *creditsRepo) invalidate(ctx context.Context, userID string) {
	if _, err := r.rdb.Del(ctx, BalanceCacheKey(userID)); err != nil {
		r.logger.Warn("failed to invalidate credits cache",
			zap.String("user_id", userID), zap.Error(err))
	}
}
