package workerpool

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

var (
	ErrPoolClosed = errors.New("worker pool is closed")
)

// Config configures a Pool
type Config struct {
	// Workers is the number of concurrent workers. Defaults to the
	// number of CPUs; the pool exists to bound CPU-heavy work.
	Workers int
}

// DefaultConfig returns a configuration sized to available cores
func DefaultConfig() *Config {
	return &Config{Workers: runtime.GOMAXPROCS(0)}
}

// Statistics holds pool counters
type Statistics struct {
	Submitted int64
	Completed int64
	Failed    int64
}

// Pool is a fixed-size worker pool for CPU-bound tasks
type Pool struct {
	pool   *ants.Pool
	logger *zap.Logger

	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

// New creates a worker pool
func New(cfg *Config, logger *zap.Logger) (*Pool, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}

	p, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("worker pool started", zap.Int("workers", cfg.Workers))
	}

	return &Pool{
		pool:   p,
		logger: logger,
	}, nil
}

// Submit schedules a task for asynchronous execution
func (p *Pool) Submit(task func()) error {
	if p.pool.IsClosed() {
		return ErrPoolClosed
	}

	p.submitted.Add(1)
	return p.pool.Submit(func() {
		task()
		p.completed.Add(1)
	})
}

// SubmitWait schedules a task and waits for its result or for the
// context to expire. A task abandoned on timeout still runs to
// completion on its worker; only the wait is cancelled.
func (p *Pool) SubmitWait(ctx context.Context, task func() error) error {
	if p.pool.IsClosed() {
		return ErrPoolClosed
	}

	p.submitted.Add(1)
	done := make(chan error, 1)

	if err := p.pool.Submit(func() {
		err := task()
		if err != nil {
			p.failed.Add(1)
		} else {
			p.completed.Add(1)
		}
		done <- err
	}); err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a snapshot of pool counters
func (p *Pool) Stats() Statistics {
	return Statistics{
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
	}
}

// Running returns the number of currently running workers
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Release stops the pool and releases its workers
func (p *Pool) Release() {
	p.pool.Release()
	if p.logger != nil {
		p.logger.Info("worker pool released")
	}
}
