package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shrinkray/image-optimizer-backend/internal/image/biz"
	"github.com/shrinkray/image-optimizer-backend/internal/pkg/logger"
	redispkg "github.com/shrinkray/image-optimizer-backend/internal/pkg/redis"
)

// lockKey guards the sweep so only one instance runs it at a time
const lockKey = "sweeper:expired-images:lock"

const defaultBatchSize = 100

// Sweeper periodically deletes expired images and their stored
// objects
type Sweeper struct {
	uc       *biz.OptimizeUseCase
	rdb      *redispkg.Client
	interval time.Duration
	logger   *logger.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

func New(uc *biz.OptimizeUseCase, rdb *redispkg.Client, interval time.Duration, log *logger.Logger) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Sweeper{
		uc:       uc,
		rdb:      rdb,
		interval: interval,
		logger:   log,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the background sweep loop
func (s *Sweeper) Start() {
	go s.run()
	s.logger.Info("expiry sweeper started", zap.Duration("interval", s.interval))
}

// Stop shuts the loop down and waits for an in-flight sweep to finish
func (s *Sweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.logger.Info("expiry sweeper stopped")
}

func (s *Sweeper) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.interval)
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error("sweep failed", zap.Error(err))
			}
			cancel()
		case <-s.stopCh:
			return
		}
	}
}

// Sweep runs one pass over expired images. The redis lock keeps
// concurrent instances from sweeping the same rows; a pass that loses
// the lock is a no-op.
func (s *Sweeper) Sweep(ctx context.Context) error {
	acquired, err := s.rdb.SetNX(ctx, lockKey, "1", s.interval)
	if err != nil {
		return err
	}
	if !acquired {
		s.logger.Debug("sweep lock held elsewhere, skipping pass")
		return nil
	}
	defer func() {
		if _, err := s.rdb.Del(ctx, lockKey); err != nil {
			s.logger.Warn("failed to release sweep lock", zap.Error(err))
		}
	}()

	// drain in batches until no expired rows remain
	for {
		deleted, err := s.uc.SweepExpired(ctx, defaultBatchSize)
		if err != nil {
			return err
		}
		if deleted < defaultBatchSize {
			return nil
		}
	}
}
