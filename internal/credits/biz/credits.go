package biz

import (
	"context"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/shrinkray/image-optimizer-backend/internal/pkg/errors"
	"github.com/shrinkray/image-optimizer-backend/internal/pkg/logger"
)

// Credits is one user's spendable balance
type Credits struct {
	UserID    string
	Balance   int64
	UpdatedAt time.Time
}

// CreditsRepo defines the interface for credits persistence
type CreditsRepo interface {
	// GetBalance returns the user's current balance
	GetBalance(ctx context.Context, userID string) (int64, error)
	// Debit subtracts amount and returns the remaining balance. Fails
	// with an insufficient-credits error when the balance is too low.
	Debit(ctx context.Context, userID string, amount int64) (int64, error)
	// Grant adds amount, creating the account when missing, and
	// returns the new balance
	Grant(ctx context.Context, userID string, amount int64) (int64, error)
	// EnsureAccount creates the account with the given balance if it
	// does not exist yet
	EnsureAccount(ctx context.Context, userID string, balance int64) error
}

// CreditsUseCase manages user credit balances
type CreditsUseCase struct {
	repo            CreditsRepo
	startingCredits int64
	logger          *logger.Logger
}

func NewCreditsUseCase(repo CreditsRepo, startingCredits int64, log *logger.Logger) *CreditsUseCase {
	return &CreditsUseCase{
		repo:            repo,
		startingCredits: startingCredits,
		logger:          log,
	}
}

// Balance returns the user's balance, seeding a new account with the
// starting grant on first access
func (uc *CreditsUseCase) Balance(ctx context.Context, userID string) (int64, error) {
	balance, err := uc.repo.GetBalance(ctx, userID)
	if err == nil {
		return balance, nil
	}
	if !apperrors.Is(err, apperrors.ErrCreditsNotFound) {
		return 0, err
	}

	if err := uc.repo.EnsureAccount(ctx, userID, uc.startingCredits); err != nil {
		return 0, err
	}
	uc.logger.Info("credits account seeded",
		zap.String("user_id", userID), zap.Int64("balance", uc.startingCredits))
	return uc.repo.GetBalance(ctx, userID)
}

// Debit spends amount from the user's balance
func (uc *CreditsUseCase) Debit(ctx context.Context, userID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, apperrors.New(apperrors.ErrInvalidParams, "amount must be positive")
	}
	return uc.repo.Debit(ctx, userID, amount)
}

// Grant adds amount to the user's balance
func (uc *CreditsUseCase) Grant(ctx context.Context, userID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, apperrors.New(apperrors.ErrInvalidParams, "amount must be positive")
	}
	return uc.repo.Grant(ctx, userID, amount)
}
