package biz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/shrinkray/image-optimizer-backend/internal/pkg/errors"
	"github.com/shrinkray/image-optimizer-backend/internal/pkg/logger"
)

type memRepo struct {
	balances map[string]int64
}

func newMemRepo() *memRepo {
	return &memRepo{balances: map[string]int64{}}
}

func (r *memRepo) GetBalance(_ context.Context, userID string) (int64, error) {
	balance, ok := r.balances[userID]
	if !ok {
		return 0, apperrors.New(apperrors.ErrCreditsNotFound)
	}
	return balance, nil
}

func (r *memRepo) Debit(_ context.Context, userID string, amount int64) (int64, error) {
	balance, ok := r.balances[userID]
	if !ok {
		return 0, apperrors.New(apperrors.ErrCreditsNotFound)
	}
	if balance < amount {
		return 0, apperrors.New(apperrors.ErrInsufficientCredits)
	}
	r.balances[userID] = balance - amount
	return r.balances[userID], nil
}

func (r *memRepo) Grant(_ context.Context, userID string, amount int64) (int64, error) {
	r.balances[userID] += amount
	return r.balances[userID], nil
}

func (r *memRepo) EnsureAccount(_ context.Context, userID string, balance int64) error {
	if _, ok := r.balances[userID]; !ok {
		r.balances[userID] = balance
	}
	return nil
}

func TestBalanceSeedsNewAccount(t *testing.T) {
	repo := newMemRepo()
	uc := NewCreditsUseCase(repo, 10, logger.Nop())

	balance, err := uc.Balance(context.Background(), "fresh-user")
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance)
}

func TestBalanceReturnsExisting(t *testing.T) {
	repo := newMemRepo()
	repo.balances["u1"] = 3
	uc := NewCreditsUseCase(repo, 10, logger.Nop())

	balance, err := uc.Balance(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), balance)
}

func TestDebit(t *testing.T) {
	repo := newMemRepo()
	repo.balances["u1"] = 2
	uc := NewCreditsUseCase(repo, 10, logger.Nop())

	remaining, err := uc.Debit(context.Background(), "u1", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), remaining)

	remaining, err = uc.Debit(context.Background(), "u1", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), remaining)

	_, err = uc.Debit(context.Background(), "u1", 1)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInsufficientCredits))
}

func TestDebitRejectsNonPositiveAmount(t *testing.T) {
	uc := NewCreditsUseCase(newMemRepo(), 10, logger.Nop())

	_, err := uc.Debit(context.Background(), "u1", 0)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidParams))
}

func TestGrant(t *testing.T) {
	repo := newMemRepo()
	uc := NewCreditsUseCase(repo, 10, logger.Nop())

	balance, err := uc.Grant(context.Background(), "u1", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), balance)

	balance, err = uc.Grant(context.Background(), "u1", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(7), balance)
}
